package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// NoSearxNGResults is the evidence returned when SearxNG yields no snippets
const NoSearxNGResults = "No search results found"

// SearxNGConfig configures a SearxNG backend
type SearxNGConfig struct {
	// BaseURL of the instance; a trailing slash is trimmed
	BaseURL string

	// APIKey is sent as a bearer token when set
	APIKey string

	// Language code for results, default "en"
	Language string

	// K is the number of results turned into evidence, default 1
	K int

	// TimeRange filters results: day, week, month, year
	TimeRange string

	// Categories searched, default ["general"]
	Categories []string

	// Format is json, rss or csv, default json
	Format string

	// Timeout per HTTP attempt, default 30s
	Timeout time.Duration

	Backoff Backoff

	// HTTPClient overrides the client built from Timeout
	HTTPClient *http.Client
}

// SearxNG queries a SearxNG instance
type SearxNG struct {
	config SearxNGConfig
	client *http.Client
}

// SupportedCategories lists the SearxNG category names
func SupportedCategories() []string {
	return []string{
		"general",
		"news",
		"files",
		"images",
		"videos",
		"music",
		"social media",
		"map",
		"science",
		"it",
	}
}

// NewSearxNG creates a SearxNG backend
func NewSearxNG(config SearxNGConfig) (*SearxNG, error) {
	config.BaseURL = strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	if config.BaseURL == "" {
		return nil, fmt.Errorf("%w: SearxNG URL required for searxng search type", ErrMissingCredential)
	}
	if config.Language == "" {
		config.Language = "en"
	}
	if config.K < 1 {
		config.K = 1
	}
	if len(config.Categories) == 0 {
		config.Categories = []string{"general"}
	}

	switch config.Format {
	case "":
		config.Format = "json"
	case "json", "rss", "csv":
	default:
		return nil, fmt.Errorf("unsupported SearxNG format %q (supported: json, rss, csv)", config.Format)
	}

	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}

	return &SearxNG{config: config, client: client}, nil
}

// Name returns the backend kind
func (s *SearxNG) Name() Kind {
	return KindSearxNG
}

// Search runs query against {base}/search and returns the evidence text
func (s *SearxNG) Search(ctx context.Context, query string, opts Options) (string, error) {
	params := s.params(query, opts)
	searchURL := s.config.BaseURL + "/search?" + params.Encode()

	resp, err := doWithRetry(ctx, s.client, KindSearxNG, s.config.Backoff, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
		if err != nil {
			return nil, err
		}
		if s.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(KindSearxNG, resp); err != nil {
		return "", err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read searxng response: %w", err)
	}

	// Only JSON carries structured results; other formats are passed through
	if s.config.Format != "json" {
		return strings.TrimSpace(string(body)), nil
	}

	var parsed searxngResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode searxng response: %w", err)
	}

	return strings.Join(parseSearxNGSnippets(parsed, s.config.K), " "), nil
}

// params builds the query parameters. Options override configured defaults.
func (s *SearxNG) params(query string, opts Options) url.Values {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", s.config.Format)
	params.Set("language", s.config.Language)
	params.Set("categories", strings.Join(s.config.Categories, ","))
	params.Set("pageno", "1")
	params.Set("results", strconv.Itoa(s.config.K))
	if s.config.TimeRange != "" {
		params.Set("time_range", s.config.TimeRange)
	}

	if opts.Language != "" {
		params.Set("language", opts.Language)
	}
	if len(opts.Categories) > 0 {
		params.Set("categories", strings.Join(opts.Categories, ","))
	}
	if opts.TimeRange != "" {
		params.Set("time_range", opts.TimeRange)
	}
	if len(opts.Engines) > 0 {
		params.Set("engines", strings.Join(opts.Engines, ","))
	}
	if opts.SafeSearch != nil {
		params.Set("safesearch", strconv.Itoa(*opts.SafeSearch))
	}
	if opts.PageNo > 0 {
		params.Set("pageno", strconv.Itoa(opts.PageNo))
	}

	return params
}

type searxngResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	Publisher   string `json:"publisher"`
	Highlighted string `json:"highlighted"`
	Engine      string `json:"engine"`
}

type searxngResponse struct {
	Query   string          `json:"query"`
	Results []searxngResult `json:"results"`
}

// parseSearxNGSnippets emits title, content, source and highlight for the
// first k results, or the no-results sentinel.
func parseSearxNGSnippets(resp searxngResponse, k int) []string {
	results := resp.Results
	if len(results) > k {
		results = results[:k]
	}

	var snippets []string
	for _, r := range results {
		if title := htmlToText(r.Title); title != "" {
			snippets = append(snippets, title)
		}
		if content := htmlToText(r.Content); content != "" {
			snippets = append(snippets, content)
		}
		if r.Publisher != "" {
			snippets = append(snippets, "Source: "+r.Publisher)
		}
		if highlighted := htmlToText(r.Highlighted); highlighted != "" {
			snippets = append(snippets, highlighted)
		}
	}

	if len(snippets) == 0 {
		return []string{NoSearxNGResults}
	}
	return snippets
}
