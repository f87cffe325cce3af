// Package pipeline evaluates a whole response: it extracts atomic facts,
// classifies and rates each one, and assembles the report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/verity/internal/model"
	"github.com/ppiankov/verity/internal/rater"
	"github.com/ppiankov/verity/internal/search"
)

const defaultMaxClaimRetries = 3

// ErrNoEvidence marks a verdict the rater reached without running a single
// search. Such a claim is retried and, if it persists, dropped.
var ErrNoEvidence = errors.New("verdict reached without any search")

// FactExtractor splits a response into sentences and their atomic facts
type FactExtractor interface {
	Extract(ctx context.Context, response string) ([]model.SentenceFacts, error)
}

// RelevanceClassifier revises a fact to be self-contained and decides
// whether it bears on the prompt
type RelevanceClassifier interface {
	Classify(ctx context.Context, prompt, response, atomicFact string) (model.RelevanceData, error)
}

// FactChecker rates a single self-contained fact; *rater.Rater satisfies it
type FactChecker interface {
	Check(ctx context.Context, atomicFact string) (rater.Outcome, error)
}

// Options configure an Evaluator
type Options struct {
	// SearchType is recorded on the report
	SearchType string

	// MaxClaimRetries is the number of attempts per claim, default 3
	MaxClaimRetries int

	Logger *slog.Logger
}

// Evaluator runs the full evaluation for one response at a time. It holds no
// per-response state and may be shared by batch workers.
type Evaluator struct {
	extractor  FactExtractor
	classifier RelevanceClassifier
	checker    FactChecker
	options    Options
	logger     *slog.Logger
}

// NewEvaluator wires an evaluator from its collaborators
func NewEvaluator(extractor FactExtractor, classifier RelevanceClassifier, checker FactChecker, options Options) *Evaluator {
	if options.MaxClaimRetries <= 0 {
		options.MaxClaimRetries = defaultMaxClaimRetries
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Evaluator{
		extractor:  extractor,
		classifier: classifier,
		checker:    checker,
		options:    options,
		logger:     logger,
	}
}

type claimOutcome int

const (
	claimSucceeded claimOutcome = iota
	claimRetriable
	claimFatal
)

func (o claimOutcome) String() string {
	switch o {
	case claimSucceeded:
		return "success"
	case claimRetriable:
		return "retriable"
	default:
		return "fatal"
	}
}

// claimResult is the outcome of one attempt at one claim
type claimResult struct {
	outcome   claimOutcome
	statement model.CheckedStatement
	relevance model.RelevanceData
	pastSteps model.PastSteps
	err       error
}

// Evaluate extracts, classifies and rates every atomic fact of response.
// Claims that keep failing are dropped and listed in Report.Failures; only
// configuration errors and context cancellation abort the run.
func (e *Evaluator) Evaluate(ctx context.Context, prompt, response string) (*model.Report, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := e.logger.With("run_id", runID)

	groups, err := e.extractor.Extract(ctx, response)
	if err != nil {
		evaluations.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("extract atomic facts: %w", err)
	}

	report := &model.Report{
		RunID:             runID,
		EvaluatedAt:       start.UTC(),
		Prompt:            prompt,
		Response:          response,
		SearchType:        e.options.SearchType,
		AllAtomicFacts:    groups,
		CheckedStatements: []model.CheckedStatement{},
		RevisedFactsAll:   []model.RelevanceData{},
		PastStepsAll:      []model.PastSteps{},
	}
	for _, group := range groups {
		report.NumClaims += len(group.AtomicFacts)
	}
	logger.Info("evaluating response", "sentences", len(groups), "claims", report.NumClaims)

	for _, claim := range model.Claims(groups) {
		result, attempts := e.evaluateWithRetry(ctx, logger, prompt, response, claim)

		switch result.outcome {
		case claimSucceeded:
			report.CheckedStatements = append(report.CheckedStatements, result.statement)
			report.RevisedFactsAll = append(report.RevisedFactsAll, result.relevance)
			report.PastStepsAll = append(report.PastStepsAll, result.pastSteps)
			claimsProcessed.WithLabelValues(result.statement.Annotation).Inc()

		case claimRetriable:
			logger.Warn("dropping claim after retries",
				"atomic_fact", claim.AtomicFact, "attempts", attempts, "error", result.err)
			report.Failures = append(report.Failures, model.ClaimFailure{
				Sentence:   claim.Sentence,
				AtomicFact: claim.AtomicFact,
				Attempts:   attempts,
				Error:      result.err.Error(),
			})
			claimsProcessed.WithLabelValues("dropped").Inc()

		case claimFatal:
			evaluations.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("claim %q: %w", claim.AtomicFact, result.err)
		}
	}

	report.Counts = CountLabels(report.CheckedStatements, logger)
	report.SearchTypesUsed = searchTypesUsed(report.CheckedStatements)

	evaluations.WithLabelValues("ok").Inc()
	evaluationDuration.Observe(time.Since(start).Seconds())
	logger.Info("response evaluated",
		"checked", len(report.CheckedStatements),
		"dropped", len(report.Failures),
		"duration", time.Since(start).Round(time.Millisecond))

	return report, nil
}

// evaluateWithRetry retries a claim from scratch while attempts are retriable
func (e *Evaluator) evaluateWithRetry(ctx context.Context, logger *slog.Logger, prompt, response string, claim model.Claim) (claimResult, int) {
	var result claimResult
	attempt := 0
	for attempt < e.options.MaxClaimRetries {
		attempt++
		result = e.evaluateClaim(ctx, prompt, response, claim)
		if result.outcome != claimRetriable {
			return result, attempt
		}
		claimRetries.Inc()
		logger.Debug("claim attempt failed",
			"atomic_fact", claim.AtomicFact, "attempt", attempt, "error", result.err)
	}
	return result, attempt
}

// evaluateClaim classifies and, when relevant, rates one claim
func (e *Evaluator) evaluateClaim(ctx context.Context, prompt, response string, claim model.Claim) claimResult {
	relevance, err := e.classifier.Classify(ctx, prompt, response, claim.AtomicFact)
	if err != nil {
		return failed(ctx, fmt.Errorf("classify relevance: %w", err))
	}

	selfContained := relevance.RevisedFact
	if selfContained == "" {
		selfContained = claim.AtomicFact
	}

	statement := model.CheckedStatement{
		Sentence:                claim.Sentence,
		AtomicFact:              claim.AtomicFact,
		SelfContainedAtomicFact: selfContained,
		RelevanceData:           &relevance,
	}

	if !relevance.IsRelevant {
		statement.Annotation = model.LabelIrrelevant
		statement.SearchTypes = []string{}
		return claimResult{
			outcome:   claimSucceeded,
			statement: statement,
			relevance: relevance,
			pastSteps: model.PastSteps{Searches: []model.SearchResult{}, SearchTypesUsed: []string{}},
		}
	}

	outcome, err := e.checker.Check(ctx, selfContained)
	if err != nil {
		return failed(ctx, fmt.Errorf("rate fact: %w", err))
	}
	if outcome.Answer == nil {
		return failed(ctx, rater.ErrUnresolved)
	}
	if len(outcome.PastSteps.SearchTypesUsed) == 0 {
		return failed(ctx, fmt.Errorf("%w: %s", ErrNoEvidence, outcome.Answer.Answer))
	}

	statement.RateData = outcome.Answer
	statement.Annotation = outcome.Answer.Answer
	statement.SearchTypes = append([]string{}, outcome.PastSteps.SearchTypesUsed...)

	return claimResult{
		outcome:   claimSucceeded,
		statement: statement,
		relevance: relevance,
		pastSteps: outcome.PastSteps,
	}
}

// failed classifies err as fatal (configuration, cancellation) or retriable
func failed(ctx context.Context, err error) claimResult {
	if search.IsConfigError(err) || ctx.Err() != nil ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return claimResult{outcome: claimFatal, err: err}
	}
	return claimResult{outcome: claimRetriable, err: err}
}

// CountLabels counts annotations per label. The three standard labels are
// always present; unknown annotations are counted under their own name.
func CountLabels(statements []model.CheckedStatement, logger *slog.Logger) map[string]int {
	counts := make(map[string]int)
	for _, label := range model.Labels() {
		counts[label] = 0
	}

	for _, s := range statements {
		if s.Annotation == "" {
			continue
		}

		matched := false
		for _, label := range model.Labels() {
			if strings.EqualFold(s.Annotation, label) {
				counts[label]++
				matched = true
				break
			}
		}
		if !matched {
			counts[s.Annotation]++
			if logger != nil {
				logger.Warn("unknown statement annotation", "annotation", s.Annotation)
			}
		}
	}

	return counts
}

// searchTypesUsed returns the distinct providers across statements in first-seen order
func searchTypesUsed(statements []model.CheckedStatement) []string {
	seen := make(map[string]bool)
	types := []string{}
	for _, s := range statements {
		for _, t := range s.SearchTypes {
			if !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		}
	}
	return types
}
