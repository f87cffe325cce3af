package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies a search backend. The set is closed: adding a backend means
// adding a Kind and a case in NewProvider.
type Kind string

const (
	// KindSerper is the Google web-search backend served by serper.dev
	KindSerper Kind = "serper"

	// KindSearxNG is a self-hosted SearxNG meta-search instance
	KindSearxNG Kind = "searxng"
)

var (
	// ErrUnsupportedProvider is returned for search type names outside the known set
	ErrUnsupportedProvider = errors.New("unsupported search provider")

	// ErrMissingCredential is returned when the chosen backend lacks a required key or URL
	ErrMissingCredential = errors.New("missing search credential")

	// ErrExhaustedRetries is returned when every attempt failed at the transport level
	ErrExhaustedRetries = errors.New("search retries exhausted")
)

// HTTPStatusError is returned when the backend answered with a 4xx/5xx status.
// It is never retried.
type HTTPStatusError struct {
	Provider   Kind
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s search: HTTP %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s search: HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
}

// IsConfigError reports whether err comes from provider selection rather than
// from running a query.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrUnsupportedProvider) || errors.Is(err, ErrMissingCredential)
}

// ParseKind maps a configured search type to a Kind. "web" and "meta-search"
// are accepted as aliases.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "serper", "web":
		return KindSerper, nil
	case "searxng", "meta-search":
		return KindSearxNG, nil
	default:
		return "", fmt.Errorf("%w: %q (supported: serper, searxng)", ErrUnsupportedProvider, name)
	}
}

// Options are per-call overrides. Zero fields keep the provider's configured
// defaults; non-zero fields replace them. Backends ignore fields they have no
// parameter for.
type Options struct {
	// Language overrides the result language (SearxNG language, Serper hl)
	Language string

	// Categories overrides the SearxNG category list
	Categories []string

	// TimeRange is one of day, week, month, year
	TimeRange string

	// Engines restricts SearxNG to the named engines
	Engines []string

	// SafeSearch is the SearxNG safesearch level (0, 1, 2); nil keeps the instance default
	SafeSearch *int

	// PageNo selects the result page; 0 means the first page
	PageNo int
}

func (o Options) cacheKey() string {
	safe := "-"
	if o.SafeSearch != nil {
		safe = strconv.Itoa(*o.SafeSearch)
	}
	return fmt.Sprintf("lang=%s;cat=%s;time=%s;eng=%s;safe=%s;page=%d",
		o.Language, strings.Join(o.Categories, ","), o.TimeRange, strings.Join(o.Engines, ","), safe, o.PageNo)
}

// Provider runs one query and returns the evidence text
type Provider interface {
	// Name returns the backend kind
	Name() Kind

	// Search runs query and flattens the results into a single evidence string
	Search(ctx context.Context, query string, opts Options) (string, error)
}
