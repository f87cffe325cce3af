package rater

import (
	"strings"

	"github.com/ppiankov/verity/internal/llm"
	"github.com/ppiankov/verity/internal/model"
)

const (
	statementPlaceholder = "[STATEMENT]"
	knowledgePlaceholder = "[KNOWLEDGE]"

	// noKnowledge fills the next-search prompt before any evidence exists
	noKnowledge = "N/A"
)

const nextSearchTemplate = `Instructions:
1. You have been given a STATEMENT and some KNOWLEDGE points.
2. Your goal is to try to find evidence that either supports or does not support the factual accuracy of the given STATEMENT.
3. To do this, you are allowed to issue ONE search query that you think will allow you to find additional useful evidence.
4. Your query should aim to obtain new information that does not appear in the KNOWLEDGE. This new information should be useful for determining the factual accuracy of the given STATEMENT.
5. Format your final query by putting it in a markdown code block.

KNOWLEDGE:
[KNOWLEDGE]

STATEMENT:
[STATEMENT]
`

const finalAnswerTemplate = `Instructions:
1. You have been given a STATEMENT and some KNOWLEDGE points.
2. Determine whether the given STATEMENT is supported by the given KNOWLEDGE. The STATEMENT does not need to be explicitly supported by the KNOWLEDGE, but should be strongly implied by the KNOWLEDGE.
3. Before showing your answer, think step-by-step and show your specific reasoning. As part of your reasoning, summarize the main points of the KNOWLEDGE.
4. If the STATEMENT is supported by the KNOWLEDGE, be sure to show the supporting evidence.
5. After stating your reasoning, restate the STATEMENT and then determine your final answer based on your reasoning and the STATEMENT.
6. Your final answer should be either "Supported" or "Not Supported". Wrap your final answer in square brackets.

KNOWLEDGE:
[KNOWLEDGE]

STATEMENT:
[STATEMENT]
`

// nextSearchPrompt asks for one more query given the evidence so far
func nextSearchPrompt(atomicFact string, steps model.PastSteps) string {
	knowledge := steps.Knowledge()
	if knowledge == "" {
		knowledge = noKnowledge
	}
	return render(nextSearchTemplate, atomicFact, knowledge)
}

// finalAnswerPrompt asks for a bracketed verdict over all evidence
func finalAnswerPrompt(atomicFact string, steps model.PastSteps) string {
	return render(finalAnswerTemplate, atomicFact, steps.Knowledge())
}

func render(template, atomicFact, knowledge string) string {
	// Statement first so evidence text containing a placeholder is left alone
	prompt := strings.Replace(template, statementPlaceholder, atomicFact, 1)
	prompt = strings.Replace(prompt, knowledgePlaceholder, knowledge, 1)
	return llm.StripString(prompt)
}
