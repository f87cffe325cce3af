// Package rater decides whether a single atomic fact is supported by
// searching for evidence and asking the model for a verdict.
package rater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ppiankov/verity/internal/llm"
	"github.com/ppiankov/verity/internal/model"
)

const (
	defaultMaxSteps   = 5
	defaultMaxRetries = 10
)

// ErrUnresolved is returned when no parseable verdict was produced
var ErrUnresolved = errors.New("no parseable verdict")

// Searcher runs one query; *search.Dispatcher satisfies it
type Searcher interface {
	Search(ctx context.Context, query string) (model.SearchResult, error)
}

// Config bounds the loop
type Config struct {
	// MaxSteps is the maximum number of searches per fact
	MaxSteps int

	// MaxRetries is how many extra times a query or verdict prompt is re-sent
	// when the answer cannot be parsed. 0 uses the default; negative disables retries.
	MaxRetries int

	// Debug logs every prompt and completion
	Debug bool

	Logger *slog.Logger
}

// ConfigFromModel converts model.RaterConfig to rater.Config
func ConfigFromModel(cfg model.RaterConfig) Config {
	return Config{
		MaxSteps:   cfg.MaxSteps,
		MaxRetries: cfg.MaxRetries,
		Debug:      cfg.Debug,
	}
}

// Outcome is the result of checking one fact. PastSteps is filled even when
// the verdict is unresolved.
type Outcome struct {
	Answer    *model.FinalAnswer
	PastSteps model.PastSteps
}

// Rater runs the search-then-verdict loop for atomic facts
type Rater struct {
	generator llm.Generator
	searcher  Searcher
	config    Config
	logger    *slog.Logger
}

// New creates a rater. Zero limits fall back to 5 steps and 10 retries.
func New(generator llm.Generator, searcher Searcher, config Config) *Rater {
	if config.MaxSteps <= 0 {
		config.MaxSteps = defaultMaxSteps
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	} else if config.MaxRetries == 0 {
		config.MaxRetries = defaultMaxRetries
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Rater{
		generator: generator,
		searcher:  searcher,
		config:    config,
		logger:    logger,
	}
}

// Check gathers evidence for atomicFact over up to MaxSteps searches and then
// asks for a verdict. Search and generator failures are returned as errors;
// an unparseable verdict returns ErrUnresolved together with the evidence.
func (r *Rater) Check(ctx context.Context, atomicFact string) (Outcome, error) {
	outcome := Outcome{
		PastSteps: model.PastSteps{
			Searches:        []model.SearchResult{},
			SearchTypesUsed: []string{},
		},
	}

	for step := 0; step < r.config.MaxSteps; step++ {
		next, err := r.nextSearch(ctx, atomicFact, outcome.PastSteps)
		if err != nil {
			return outcome, err
		}
		if next == nil {
			// Remaining rounds are skipped; rate what we have
			r.logger.Warn("no parseable search query, stopping early",
				"fact", atomicFact, "step", step+1, "searches", outcome.PastSteps.Len())
			break
		}
		outcome.PastSteps.Append(*next)
	}
	stepsPerFact.Observe(float64(outcome.PastSteps.Len()))

	answer, err := r.finalAnswer(ctx, atomicFact, outcome.PastSteps)
	if err != nil {
		return outcome, err
	}
	if answer == nil {
		verdicts.WithLabelValues("unresolved").Inc()
		return outcome, fmt.Errorf("%w after %d attempts", ErrUnresolved, r.config.MaxRetries+1)
	}

	verdicts.WithLabelValues(answer.Answer).Inc()
	outcome.Answer = answer
	return outcome, nil
}

// nextSearch asks for a query until one parses, then runs it. nil means the
// model never produced a usable query.
func (r *Rater) nextSearch(ctx context.Context, atomicFact string, steps model.PastSteps) (*model.SearchResult, error) {
	prompt := nextSearchPrompt(atomicFact, steps)

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		response, err := r.generator.Generate(ctx, prompt, r.config.Debug)
		if err != nil {
			return nil, fmt.Errorf("generate search query: %w", err)
		}

		query := llm.ExtractFirstCodeBlock(response, true)
		if response == "" || query == "" {
			continue
		}

		result, err := r.searcher.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		return &result, nil
	}

	return nil, nil
}

// finalAnswer asks for a verdict until one parses. nil means unresolved.
func (r *Rater) finalAnswer(ctx context.Context, atomicFact string, steps model.PastSteps) (*model.FinalAnswer, error) {
	prompt := finalAnswerPrompt(atomicFact, steps)

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		response, err := r.generator.Generate(ctx, prompt, r.config.Debug)
		if err != nil {
			return nil, fmt.Errorf("generate verdict: %w", err)
		}

		if label, ok := ParseVerdict(response); ok {
			return &model.FinalAnswer{Response: response, Answer: label}, nil
		}
	}

	return nil, nil
}

var nonWordPattern = regexp.MustCompile(`[^\w\s]`)

// ParseVerdict extracts the first bracketed label from response. Only
// Supported and Not Supported are accepted.
func ParseVerdict(response string) (string, bool) {
	if response == "" {
		return "", false
	}
	answer := llm.ExtractFirstSquareBrackets(response)
	answer = strings.TrimSpace(nonWordPattern.ReplaceAllString(answer, ""))

	switch answer {
	case model.LabelSupported, model.LabelNotSupported:
		return answer, true
	default:
		return "", false
	}
}
