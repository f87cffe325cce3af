package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/ppiankov/verity/internal/cache"
	"github.com/ppiankov/verity/internal/extract"
	"github.com/ppiankov/verity/internal/llm"
	"github.com/ppiankov/verity/internal/model"
	"github.com/ppiankov/verity/internal/rater"
	"github.com/ppiankov/verity/internal/search"
	"github.com/ppiankov/verity/internal/util"
	"github.com/ppiankov/verity/internal/worker"
)

// Build wires an Evaluator from configuration. Unsupported search providers,
// missing search credentials and unusable LLM settings fail here, before any
// response is evaluated.
func Build(cfg *model.Config, logger *slog.Logger) (*Evaluator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	llmConfig := llm.ConfigFromModel(cfg)
	llmConfig.Logger = logger
	generator, err := llm.NewGenerator(llmConfig)
	if err != nil {
		return nil, fmt.Errorf("LLM provider: %w", err)
	}

	var limiter search.Limiter
	if cfg.RateLimiting.Enabled {
		limiter = worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	}

	dispatcher, err := search.NewDispatcher(search.DispatcherConfig{
		Search:     cfg.Search,
		HTTPClient: util.NewHTTPClient(cfg.Search.Timeout, cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy),
		Cache:      cache.New(cfg.Cache),
		CacheTTL:   cfg.Cache.DiskTTL,
		Limiter:    limiter,
		Options:    search.OptionsFromConfig(cfg.Search),
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	raterConfig := rater.ConfigFromModel(cfg.Rater)
	raterConfig.Logger = logger

	return NewEvaluator(
		extract.NewFactExtractor(generator, cfg.Rater.Debug),
		extract.NewRelevanceClassifier(generator, cfg.Rater.Debug),
		rater.New(generator, dispatcher, raterConfig),
		Options{
			SearchType:      string(dispatcher.Kind()),
			MaxClaimRetries: cfg.Pipeline.MaxClaimRetries,
			Logger:          logger,
		},
	), nil
}
