package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/verity/internal/llm"
	"github.com/ppiankov/verity/internal/model"
)

// ErrUnparseable is returned when a model answer has none of the expected markers
var ErrUnparseable = errors.New("unparseable model output")

const atomicFactsPrompt = `Instructions:
1. You are given a SENTENCE taken from a longer RESPONSE.
2. Break the SENTENCE down into independent atomic facts. An atomic fact is a short statement that contains exactly one piece of information that can be checked on its own.
3. Only include facts that are stated in the SENTENCE. Do not add information from elsewhere.
4. If the SENTENCE states no facts (e.g. it is a greeting, an opinion or a question), output nothing.
5. Output each atomic fact on its own line, starting with "- ".

RESPONSE:
[RESPONSE]

SENTENCE:
[SENTENCE]
`

// FactExtractor splits a response into sentences and asks the model for the
// atomic facts in each one
type FactExtractor struct {
	generator llm.Generator
	debug     bool
}

// NewFactExtractor creates a fact extractor
func NewFactExtractor(generator llm.Generator, debug bool) *FactExtractor {
	return &FactExtractor{generator: generator, debug: debug}
}

// Extract returns the atomic facts of every sentence in response. Sentences
// the model finds no facts in are kept with an empty fact list.
func (e *FactExtractor) Extract(ctx context.Context, response string) ([]model.SentenceFacts, error) {
	text := PlainText(response)
	sentences := SplitSentences(text)

	groups := make([]model.SentenceFacts, 0, len(sentences))
	for _, sentence := range sentences {
		prompt := fill(atomicFactsPrompt, map[string]string{
			"[RESPONSE]": text,
			"[SENTENCE]": sentence,
		})

		answer, err := e.generator.Generate(ctx, prompt, e.debug)
		if err != nil {
			return nil, fmt.Errorf("extract atomic facts: %w", err)
		}

		groups = append(groups, model.SentenceFacts{
			Sentence:    sentence,
			AtomicFacts: parseBullets(answer),
		})
	}

	return groups, nil
}

// parseBullets returns the "- " / "* " / numbered list items of answer
func parseBullets(answer string) []string {
	var facts []string
	for _, line := range strings.Split(answer, "\n") {
		line = strings.TrimSpace(line)
		if item := listItem(line); item != line {
			facts = append(facts, item)
			continue
		}
		if item, ok := numberedItem(line); ok {
			facts = append(facts, item)
		}
	}
	return dedupe(facts)
}

// numberedItem strips a "1. " or "1) " prefix
func numberedItem(line string) (string, bool) {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i+1 >= len(line) {
		return "", false
	}
	if (line[i] != '.' && line[i] != ')') || line[i+1] != ' ' {
		return "", false
	}
	return strings.TrimSpace(line[i+2:]), true
}
