package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// NoSerperResults is the evidence returned when Serper yields no snippets
const NoSerperResults = "No good Google Search Result was found"

const serperDefaultBaseURL = "https://google.serper.dev"

// SerperConfig configures the Serper web-search backend
type SerperConfig struct {
	APIKey string

	// BaseURL defaults to https://google.serper.dev
	BaseURL string

	// K is the number of organic results turned into evidence, default 1
	K int

	// Region (gl) and Language (hl), default us/en
	Region   string
	Language string

	// TimeRange is one of day, week, month, year (sent as tbs)
	TimeRange string

	// Timeout per HTTP attempt, default 30s
	Timeout time.Duration

	Backoff Backoff

	// HTTPClient overrides the client built from Timeout
	HTTPClient *http.Client
}

// Serper queries the serper.dev Google Search API
type Serper struct {
	config SerperConfig
	client *http.Client
}

// NewSerper creates a Serper backend
func NewSerper(config SerperConfig) (*Serper, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("%w: Serper API key required for serper search type", ErrMissingCredential)
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.BaseURL == "" {
		config.BaseURL = serperDefaultBaseURL
	}
	if config.K < 1 {
		config.K = 1
	}
	if config.Region == "" {
		config.Region = "us"
	}
	if config.Language == "" {
		config.Language = "en"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}

	return &Serper{config: config, client: client}, nil
}

// Name returns the backend kind
func (s *Serper) Name() Kind {
	return KindSerper
}

type serperRequest struct {
	Q    string `json:"q"`
	GL   string `json:"gl"`
	HL   string `json:"hl"`
	Num  int    `json:"num"`
	TBS  string `json:"tbs,omitempty"`
	Page int    `json:"page,omitempty"`
}

// Search posts query to {base}/search and returns the evidence text
func (s *Serper) Search(ctx context.Context, query string, opts Options) (string, error) {
	payload := serperRequest{
		Q:   query,
		GL:  s.config.Region,
		HL:  s.config.Language,
		Num: s.config.K,
		TBS: serperTimeRange(s.config.TimeRange),
	}
	if opts.Language != "" {
		payload.HL = opts.Language
	}
	if opts.TimeRange != "" {
		payload.TBS = serperTimeRange(opts.TimeRange)
	}
	if opts.PageNo > 1 {
		payload.Page = opts.PageNo
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal serper request: %w", err)
	}

	resp, err := doWithRetry(ctx, s.client, KindSerper, s.config.Backoff, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/search", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-API-KEY", s.config.APIKey)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(KindSerper, resp); err != nil {
		return "", err
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read serper response: %w", err)
	}

	var parsed serperResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode serper response: %w", err)
	}

	return strings.Join(parseSerperSnippets(parsed, s.config.K), " "), nil
}

// serperTimeRange maps day/week/month/year to Google's qdr filter
func serperTimeRange(timeRange string) string {
	switch timeRange {
	case "day":
		return "qdr:d"
	case "week":
		return "qdr:w"
	case "month":
		return "qdr:m"
	case "year":
		return "qdr:y"
	default:
		return ""
	}
}

type serperAnswerBox struct {
	Answer             string `json:"answer"`
	Snippet            string `json:"snippet"`
	SnippetHighlighted any    `json:"snippetHighlighted"`
}

type serperKnowledgeGraph struct {
	Title       string            `json:"title"`
	Type        string            `json:"type"`
	Description string            `json:"description"`
	Attributes  map[string]string `json:"attributes"`
}

type serperOrganic struct {
	Title      string            `json:"title"`
	Link       string            `json:"link"`
	Snippet    string            `json:"snippet"`
	Attributes map[string]string `json:"attributes"`
}

type serperResponse struct {
	AnswerBox      *serperAnswerBox      `json:"answerBox"`
	KnowledgeGraph *serperKnowledgeGraph `json:"knowledgeGraph"`
	Organic        []serperOrganic       `json:"organic"`
}

// parseSerperSnippets emits the answer box, the knowledge graph and the first
// k organic results, or the no-results sentinel.
func parseSerperSnippets(resp serperResponse, k int) []string {
	var snippets []string

	if box := resp.AnswerBox; box != nil {
		switch {
		case box.Answer != "":
			snippets = append(snippets, box.Answer)
		case box.Snippet != "":
			snippets = append(snippets, strings.ReplaceAll(box.Snippet, "\n", " "))
		default:
			if highlighted := highlightedText(box.SnippetHighlighted); highlighted != "" {
				snippets = append(snippets, highlighted)
			}
		}
	}

	if kg := resp.KnowledgeGraph; kg != nil {
		if kg.Type != "" {
			snippets = append(snippets, kg.Title+": "+kg.Type)
		}
		if kg.Description != "" {
			snippets = append(snippets, kg.Description)
		}
		for _, name := range sortedKeys(kg.Attributes) {
			snippets = append(snippets, fmt.Sprintf("%s %s: %s", kg.Title, name, kg.Attributes[name]))
		}
	}

	organic := resp.Organic
	if len(organic) > k {
		organic = organic[:k]
	}
	for _, r := range organic {
		if r.Snippet != "" {
			snippets = append(snippets, r.Snippet)
		}
		for _, name := range sortedKeys(r.Attributes) {
			snippets = append(snippets, fmt.Sprintf("%s: %s", name, r.Attributes[name]))
		}
	}

	if len(snippets) == 0 {
		return []string{NoSerperResults}
	}
	return snippets
}

// highlightedText accepts snippetHighlighted as a string or list of strings
func highlightedText(v any) string {
	switch h := v.(type) {
	case string:
		return h
	case []any:
		parts := make([]string, 0, len(h))
		for _, p := range h {
			if s, ok := p.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
