package search

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/verity/internal/cache"
	"github.com/ppiankov/verity/internal/model"
)

// Limiter throttles requests per host; *worker.Limiter satisfies it
type Limiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// NewProvider builds the backend selected by cfg.Type. client may be nil.
func NewProvider(cfg model.SearchConfig, client *http.Client) (Provider, error) {
	kind, err := ParseKind(cfg.Type)
	if err != nil {
		return nil, err
	}

	backoff := Backoff{MaxRetries: cfg.MaxRetries, Cap: cfg.BackoffCap}

	switch kind {
	case KindSerper:
		return NewSerper(SerperConfig{
			APIKey:     cfg.SerperAPIKey,
			BaseURL:    cfg.SerperBaseURL,
			K:          cfg.NumResults,
			Region:     cfg.Region,
			Language:   cfg.Language,
			TimeRange:  cfg.TimeRange,
			Timeout:    cfg.Timeout,
			Backoff:    backoff,
			HTTPClient: client,
		})
	case KindSearxNG:
		return NewSearxNG(SearxNGConfig{
			BaseURL:    cfg.SearxNGURL,
			APIKey:     cfg.SearxNGAPIKey,
			Language:   cfg.Language,
			K:          cfg.NumResults,
			TimeRange:  cfg.TimeRange,
			Categories: cfg.SearxNGCategories,
			Format:     cfg.SearxNGFormat,
			Timeout:    cfg.Timeout,
			Backoff:    backoff,
			HTTPClient: client,
		})
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, kind)
}

// OptionsFromConfig returns the per-call overrides configured in cfg
func OptionsFromConfig(cfg model.SearchConfig) Options {
	opts := Options{Engines: cfg.SearxNGEngines}
	if cfg.SafeSearch != nil {
		level := *cfg.SafeSearch
		opts.SafeSearch = &level
	}
	return opts
}

// Dispatch builds the configured backend, runs one query and tags the
// evidence with the provider that served it.
func Dispatch(ctx context.Context, query string, cfg model.SearchConfig) (model.SearchResult, error) {
	d, err := NewDispatcher(DispatcherConfig{Search: cfg, Options: OptionsFromConfig(cfg)})
	if err != nil {
		return model.SearchResult{}, err
	}
	return d.Search(ctx, query)
}

// DispatcherConfig wires a Dispatcher. Only Search is required.
type DispatcherConfig struct {
	Search model.SearchConfig

	// HTTPClient is shared by the backend; nil builds one from Search.Timeout
	HTTPClient *http.Client

	// Cache stores evidence by provider and final query; nil disables caching
	Cache    cache.Cache
	CacheTTL time.Duration

	// Limiter is waited on before every backend call; nil disables throttling
	Limiter Limiter

	// Options are passed to every backend call
	Options Options

	Logger *slog.Logger
}

// Dispatcher runs queries against one backend built at construction time, so
// unsupported providers and missing credentials surface before any claim is
// rated.
type Dispatcher struct {
	provider  Provider
	postamble string
	endpoint  string
	cacheKey  []string
	cache     cache.Cache
	cacheTTL  time.Duration
	limiter   Limiter
	options   Options
	logger    *slog.Logger
}

// NewDispatcher builds the backend described by config.Search
func NewDispatcher(config DispatcherConfig) (*Dispatcher, error) {
	provider, err := NewProvider(config.Search, config.HTTPClient)
	if err != nil {
		return nil, err
	}
	return newDispatcher(provider, config), nil
}

// NewDispatcherWithProvider wraps an already built backend
func NewDispatcherWithProvider(provider Provider, config DispatcherConfig) *Dispatcher {
	return newDispatcher(provider, config)
}

func newDispatcher(provider Provider, config DispatcherConfig) *Dispatcher {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	endpoint := config.Search.SerperBaseURL
	if provider.Name() == KindSearxNG {
		endpoint = config.Search.SearxNGURL
	}
	if endpoint == "" && provider.Name() == KindSerper {
		endpoint = serperDefaultBaseURL
	}

	return &Dispatcher{
		provider:  provider,
		postamble: strings.TrimSpace(config.Search.Postamble),
		endpoint:  endpoint,
		cacheKey:  cacheKeyParts(provider.Name(), endpoint, config.Search, config.Options),
		cache:     config.Cache,
		cacheTTL:  config.CacheTTL,
		limiter:   config.Limiter,
		options:   config.Options,
		logger:    logger,
	}
}

// cacheKeyParts lists every setting that changes what a backend returns for
// the same query. Two dispatchers sharing a cache collide only when all match.
func cacheKeyParts(kind Kind, endpoint string, cfg model.SearchConfig, opts Options) []string {
	parts := []string{
		string(kind),
		endpoint,
		strconv.Itoa(cfg.NumResults),
		cfg.Language,
		cfg.TimeRange,
	}
	switch kind {
	case KindSerper:
		parts = append(parts, cfg.Region)
	case KindSearxNG:
		parts = append(parts, strings.Join(cfg.SearxNGCategories, ","), cfg.SearxNGFormat)
	}
	return append(parts, opts.cacheKey())
}

// Kind returns the backend kind queries are sent to
func (d *Dispatcher) Kind() Kind {
	return d.provider.Name()
}

// Search appends the postamble to query, runs it and returns the evidence.
// The recorded Query is the one the caller asked for.
func (d *Dispatcher) Search(ctx context.Context, query string) (model.SearchResult, error) {
	kind := d.provider.Name()
	finalQuery := query
	if d.postamble != "" {
		finalQuery = query + " " + d.postamble
	}

	result := model.SearchResult{Query: query, SearchType: string(kind)}

	key := cache.Key(append(d.cacheKey[:len(d.cacheKey):len(d.cacheKey)], finalQuery)...)
	if d.cache != nil {
		if data, found := d.cache.Get(key); found {
			searchCacheHits.WithLabelValues(string(kind)).Inc()
			d.logger.Debug("search cache hit", "provider", kind, "query", finalQuery)
			result.Result = string(data)
			return result, nil
		}
	}

	if d.limiter != nil && d.endpoint != "" {
		if err := d.limiter.Wait(ctx, d.endpoint); err != nil {
			return model.SearchResult{}, fmt.Errorf("rate limit: %w", err)
		}
	}

	start := time.Now()
	evidence, err := d.provider.Search(ctx, finalQuery, d.options)
	searchDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		searchRequests.WithLabelValues(string(kind), "error").Inc()
		return model.SearchResult{}, fmt.Errorf("%s search %q: %w", kind, finalQuery, err)
	}
	searchRequests.WithLabelValues(string(kind), "ok").Inc()

	d.logger.Debug("search complete", "provider", kind, "query", finalQuery, "evidence_bytes", len(evidence))

	if d.cache != nil {
		if err := d.cache.Set(key, []byte(evidence), d.cacheTTL); err != nil {
			d.logger.Warn("search cache write failed", "error", err)
		}
	}

	result.Result = evidence
	return result, nil
}
