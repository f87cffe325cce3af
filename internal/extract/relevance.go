package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/verity/internal/llm"
	"github.com/ppiankov/verity/internal/model"
)

const (
	relevantLabel    = "Relevant"
	notRelevantLabel = "Not Relevant"
)

const reviseFactPrompt = `Instructions:
1. You are given a STATEMENT and the RESPONSE it was taken from.
2. The STATEMENT may use pronouns or vague references ("he", "the film", "this company") that only make sense inside the RESPONSE.
3. Rewrite the STATEMENT so that it can be understood on its own, replacing each vague reference with the specific name or entity it refers to in the RESPONSE.
4. Do not add any other information and do not change the meaning of the STATEMENT.
5. If the STATEMENT is already self-contained, repeat it unchanged.
6. Put the revised STATEMENT in a markdown code block.

RESPONSE:
[RESPONSE]

STATEMENT:
[STATEMENT]
`

const relevancePrompt = `Instructions:
1. You are given a QUESTION, a RESPONSE to it and a STATEMENT taken from the RESPONSE.
2. Decide whether the STATEMENT is relevant to answering the QUESTION. A STATEMENT is relevant if it is about the subject of the QUESTION or directly supports the answer.
3. Explain your reasoning briefly.
4. Finish with your answer in square brackets: either [Relevant] or [Not Relevant].

QUESTION:
[QUESTION]

RESPONSE:
[RESPONSE]

STATEMENT:
[STATEMENT]
`

// RelevanceClassifier rewrites facts to be self-contained and decides
// whether they bear on the prompt
type RelevanceClassifier struct {
	generator llm.Generator
	debug     bool
}

// NewRelevanceClassifier creates a relevance classifier
func NewRelevanceClassifier(generator llm.Generator, debug bool) *RelevanceClassifier {
	return &RelevanceClassifier{generator: generator, debug: debug}
}

// Classify revises atomicFact and classifies it against prompt. An answer
// without a bracketed label returns ErrUnparseable.
func (c *RelevanceClassifier) Classify(ctx context.Context, prompt, response, atomicFact string) (model.RelevanceData, error) {
	data := model.RelevanceData{AtomicFact: atomicFact}

	revisePrompt := fill(reviseFactPrompt, map[string]string{
		"[RESPONSE]":  response,
		"[STATEMENT]": atomicFact,
	})
	revision, err := c.generator.Generate(ctx, revisePrompt, c.debug)
	if err != nil {
		return data, fmt.Errorf("revise fact: %w", err)
	}
	data.RevisionResponse = revision

	data.RevisedFact = llm.ExtractFirstCodeBlock(revision, true)
	if data.RevisedFact == "" {
		data.RevisedFact = atomicFact
	}

	classifyPrompt := fill(relevancePrompt, map[string]string{
		"[QUESTION]":  prompt,
		"[RESPONSE]":  response,
		"[STATEMENT]": data.RevisedFact,
	})
	answer, err := c.generator.Generate(ctx, classifyPrompt, c.debug)
	if err != nil {
		return data, fmt.Errorf("classify relevance: %w", err)
	}
	data.RelevanceResponse = answer

	switch label := strings.TrimSpace(llm.ExtractFirstSquareBrackets(answer)); {
	case strings.EqualFold(label, relevantLabel):
		data.IsRelevant = true
	case strings.EqualFold(label, notRelevantLabel):
		data.IsRelevant = false
	default:
		return data, fmt.Errorf("%w: relevance label %q", ErrUnparseable, label)
	}

	return data, nil
}

// fill replaces each placeholder once, in template order, so inserted text
// is never expanded again
func fill(template string, values map[string]string) string {
	var b strings.Builder
	rest := template
	for {
		next, key := -1, ""
		for placeholder := range values {
			if i := strings.Index(rest, placeholder); i >= 0 && (next < 0 || i < next) {
				next, key = i, placeholder
			}
		}
		if next < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:next])
		b.WriteString(values[key])
		rest = rest[next+len(key):]
	}
	return llm.StripString(b.String())
}
