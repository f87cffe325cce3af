package rater

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ppiankov/verity/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedGenerator answers search prompts and verdict prompts from separate scripts.
// An exhausted script keeps repeating its last entry.
type scriptedGenerator struct {
	queries  []string
	verdicts []string
	err      error

	searchPrompts  []string
	verdictPrompts []string
}

func (g *scriptedGenerator) Name() string                     { return "scripted" }
func (g *scriptedGenerator) IsAvailable(context.Context) bool { return true }

func (g *scriptedGenerator) Generate(_ context.Context, prompt string, _ bool) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	if strings.Contains(prompt, "issue ONE search query") {
		g.searchPrompts = append(g.searchPrompts, prompt)
		return next(g.queries, len(g.searchPrompts)-1), nil
	}
	g.verdictPrompts = append(g.verdictPrompts, prompt)
	return next(g.verdicts, len(g.verdictPrompts)-1), nil
}

func next(script []string, i int) string {
	if len(script) == 0 {
		return ""
	}
	if i >= len(script) {
		return script[len(script)-1]
	}
	return script[i]
}

// fakeSearcher returns "evidence N" for the Nth query
type fakeSearcher struct {
	queries []string
	err     error
}

func (s *fakeSearcher) Search(_ context.Context, query string) (model.SearchResult, error) {
	if s.err != nil {
		return model.SearchResult{}, s.err
	}
	s.queries = append(s.queries, query)
	return model.SearchResult{
		Query:      query,
		Result:     fmt.Sprintf("evidence %d", len(s.queries)),
		SearchType: model.SearchTypeSearxNG,
	}, nil
}

func codeBlock(q string) string {
	return "I will search for this.\n```\n" + q + "\n```"
}

func TestCheck_Supported(t *testing.T) {
	gen := &scriptedGenerator{
		queries:  []string{codeBlock("q1"), codeBlock("q2"), codeBlock("q3")},
		verdicts: []string{"The evidence agrees. [Supported]"},
	}
	searcher := &fakeSearcher{}
	r := New(gen, searcher, Config{MaxSteps: 3, MaxRetries: 2})

	outcome, err := r.Check(context.Background(), "Lanny Flaherty is an American actor.")
	require.NoError(t, err)

	require.NotNil(t, outcome.Answer)
	assert.Equal(t, model.LabelSupported, outcome.Answer.Answer)
	assert.Equal(t, "The evidence agrees. [Supported]", outcome.Answer.Response)
	assert.Equal(t, []string{"q1", "q2", "q3"}, searcher.queries)
	assert.Equal(t, 3, outcome.PastSteps.Len())
	assert.Equal(t, []string{model.SearchTypeSearxNG}, outcome.PastSteps.SearchTypesUsed)
}

func TestCheck_KnowledgeIsOrderPreserving(t *testing.T) {
	gen := &scriptedGenerator{
		queries:  []string{codeBlock("q1"), codeBlock("q2"), codeBlock("q3")},
		verdicts: []string{"[Not Supported]"},
	}
	r := New(gen, &fakeSearcher{}, Config{MaxSteps: 3, MaxRetries: 1})

	_, err := r.Check(context.Background(), "fact")
	require.NoError(t, err)

	require.Len(t, gen.searchPrompts, 3)
	assert.Contains(t, gen.searchPrompts[0], "KNOWLEDGE:\nN/A\n")
	assert.Contains(t, gen.searchPrompts[1], "KNOWLEDGE:\nevidence 1\n")
	assert.Contains(t, gen.searchPrompts[2], "KNOWLEDGE:\nevidence 1\nevidence 2\n")

	require.Len(t, gen.verdictPrompts, 1)
	assert.Contains(t, gen.verdictPrompts[0], "KNOWLEDGE:\nevidence 1\nevidence 2\nevidence 3\n")
	assert.True(t, strings.HasSuffix(gen.verdictPrompts[0], "STATEMENT:\nfact"))
}

func TestCheck_StopsEarlyWithoutQuery(t *testing.T) {
	gen := &scriptedGenerator{
		// First round parses, then the model stops producing code blocks
		queries:  []string{codeBlock("q1"), "no idea", ""},
		verdicts: []string{"[Supported]"},
	}
	searcher := &fakeSearcher{}
	r := New(gen, searcher, Config{MaxSteps: 5, MaxRetries: 2})

	outcome, err := r.Check(context.Background(), "fact")
	require.NoError(t, err)

	assert.Equal(t, []string{"q1"}, searcher.queries)
	assert.Equal(t, 1, outcome.PastSteps.Len())
	// One successful round plus MaxRetries+1 failed attempts in the second round
	assert.Len(t, gen.searchPrompts, 1+3)
	assert.Equal(t, model.LabelSupported, outcome.Answer.Answer)
}

func TestCheck_QueryRetryRecovers(t *testing.T) {
	gen := &scriptedGenerator{
		queries:  []string{"", "still nothing", codeBlock("q1")},
		verdicts: []string{"[Supported]"},
	}
	searcher := &fakeSearcher{}
	r := New(gen, searcher, Config{MaxSteps: 1, MaxRetries: 2})

	outcome, err := r.Check(context.Background(), "fact")
	require.NoError(t, err)
	assert.Equal(t, []string{"q1"}, searcher.queries)
	assert.Equal(t, 1, outcome.PastSteps.Len())
}

func TestCheck_Unresolved(t *testing.T) {
	gen := &scriptedGenerator{
		queries:  []string{codeBlock("q1")},
		verdicts: []string{"I cannot decide [Maybe]"},
	}
	r := New(gen, &fakeSearcher{}, Config{MaxSteps: 1, MaxRetries: 3})

	outcome, err := r.Check(context.Background(), "fact")
	require.ErrorIs(t, err, ErrUnresolved)

	assert.Nil(t, outcome.Answer)
	assert.Len(t, gen.verdictPrompts, 4)
	// Evidence is kept for the report even without a verdict
	assert.Equal(t, 1, outcome.PastSteps.Len())
}

func TestCheck_VerdictRetryRecovers(t *testing.T) {
	gen := &scriptedGenerator{
		queries:  []string{codeBlock("q1")},
		verdicts: []string{"", "no brackets", "[**Not Supported**]"},
	}
	r := New(gen, &fakeSearcher{}, Config{MaxSteps: 1, MaxRetries: 5})

	outcome, err := r.Check(context.Background(), "fact")
	require.NoError(t, err)
	assert.Equal(t, model.LabelNotSupported, outcome.Answer.Answer)
	assert.Len(t, gen.verdictPrompts, 3)
}

func TestCheck_SearchErrorPropagates(t *testing.T) {
	searchErr := errors.New("searxng: retries exhausted")
	gen := &scriptedGenerator{queries: []string{codeBlock("q1")}}
	r := New(gen, &fakeSearcher{err: searchErr}, Config{MaxSteps: 2})

	_, err := r.Check(context.Background(), "fact")
	assert.ErrorIs(t, err, searchErr)
	assert.Empty(t, gen.verdictPrompts)
}

func TestCheck_GeneratorErrorPropagates(t *testing.T) {
	genErr := errors.New("rate limited")
	r := New(&scriptedGenerator{err: genErr}, &fakeSearcher{}, Config{})

	_, err := r.Check(context.Background(), "fact")
	assert.ErrorIs(t, err, genErr)
}

func TestCheck_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := &scriptedGenerator{queries: []string{codeBlock("q")}}
	_, err := New(gen, &fakeSearcher{}, Config{}).Check(ctx, "fact")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, gen.searchPrompts)
}

func TestNew_Defaults(t *testing.T) {
	r := New(&scriptedGenerator{}, &fakeSearcher{}, Config{})
	assert.Equal(t, 5, r.config.MaxSteps)
	assert.Equal(t, 10, r.config.MaxRetries)

	r = New(&scriptedGenerator{}, &fakeSearcher{}, Config{MaxRetries: -1})
	assert.Equal(t, 0, r.config.MaxRetries)
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		in    string
		label string
		ok    bool
	}{
		{"Reasoning... [Supported]", model.LabelSupported, true},
		{"[Not Supported]", model.LabelNotSupported, true},
		{"[ Not Supported. ]", model.LabelNotSupported, true},
		{"[\"Supported\"]", model.LabelSupported, true},
		{"[supported]", "", false},
		{"[Irrelevant]", "", false},
		{"Supported", "", false},
		{"", "", false},
		{"[Unclear] then [Supported]", "", false},
	}
	for _, tt := range tests {
		label, ok := ParseVerdict(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.label, label, tt.in)
	}
}

func TestPrompts(t *testing.T) {
	empty := model.PastSteps{}
	prompt := nextSearchPrompt("The sky is blue.", empty)
	assert.Contains(t, prompt, "KNOWLEDGE:\nN/A\n\nSTATEMENT:\nThe sky is blue.")
	assert.False(t, strings.HasSuffix(prompt, "\n"))

	final := finalAnswerPrompt("The sky is blue.", empty)
	assert.Contains(t, final, `either "Supported" or "Not Supported"`)
	assert.Contains(t, final, "KNOWLEDGE:\n\n\nSTATEMENT:")

	// Placeholders inside the fact are not expanded again
	tricky := nextSearchPrompt("says [KNOWLEDGE]", empty)
	assert.Contains(t, tricky, "STATEMENT:\nsays [KNOWLEDGE]")
}
