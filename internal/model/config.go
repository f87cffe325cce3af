package model

import "time"

// Config is the complete verity configuration. It is built once (defaults,
// then config file, env and flags) and passed explicitly to every component.
type Config struct {
	LLM          LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Search       SearchConfig      `yaml:"search" mapstructure:"search"`
	Rater        RaterConfig       `yaml:"rater" mapstructure:"rater"`
	Pipeline     PipelineConfig    `yaml:"pipeline" mapstructure:"pipeline"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Output       OutputConfig      `yaml:"output" mapstructure:"output"`
}

// LLMConfig selects and configures the rater model
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout     int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float32 `yaml:"temperature" mapstructure:"temperature"`
}

// SearchConfig selects the search backend and holds its credentials
type SearchConfig struct {
	Type       string `yaml:"type" mapstructure:"type"`                     // serper (web) or searxng (meta-search)
	NumResults int    `yaml:"num_results" mapstructure:"num_results"`       // k: results folded into each evidence text
	Postamble  string `yaml:"postamble,omitempty" mapstructure:"postamble"` // appended to every query, e.g. site:en.wikipedia.org

	SerperAPIKey  string `yaml:"serper_api_key,omitempty" mapstructure:"serper_api_key"`
	SerperBaseURL string `yaml:"serper_base_url,omitempty" mapstructure:"serper_base_url"`

	SearxNGURL        string   `yaml:"searxng_url,omitempty" mapstructure:"searxng_url"`
	SearxNGAPIKey     string   `yaml:"searxng_api_key,omitempty" mapstructure:"searxng_api_key"`
	SearxNGCategories []string `yaml:"searxng_categories" mapstructure:"searxng_categories"`
	SearxNGFormat     string   `yaml:"searxng_format" mapstructure:"searxng_format"`
	SearxNGEngines    []string `yaml:"searxng_engines,omitempty" mapstructure:"searxng_engines"`
	SafeSearch        *int     `yaml:"safesearch,omitempty" mapstructure:"safesearch"` // 0, 1, 2; unset keeps the instance default

	Language  string `yaml:"language" mapstructure:"language"`
	Region    string `yaml:"region,omitempty" mapstructure:"region"`
	TimeRange string `yaml:"time_range,omitempty" mapstructure:"time_range"`

	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`         // per HTTP attempt
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries"` // attempts before giving up on transport errors
	BackoffCap time.Duration `yaml:"backoff_cap" mapstructure:"backoff_cap"`
}

// RaterConfig bounds the evidence-gathering loop
type RaterConfig struct {
	MaxSteps   int  `yaml:"max_steps" mapstructure:"max_steps"`
	MaxRetries int  `yaml:"max_retries" mapstructure:"max_retries"`
	Debug      bool `yaml:"debug" mapstructure:"debug"`
}

// PipelineConfig bounds whole-claim retries
type PipelineConfig struct {
	MaxClaimRetries int `yaml:"max_claim_retries" mapstructure:"max_claim_retries"`
}

// CacheConfig controls caching of search evidence
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// HTTPConfig holds settings shared by outbound HTTP clients
type HTTPConfig struct {
	UserAgent  string `yaml:"user_agent" mapstructure:"user_agent"`
	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// RateLimitConfig limits requests per search host
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ConcurrencyConfig controls batch parallelism (across responses only)
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// DefaultConfig returns the defaults used when nothing else is configured
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Timeout:     60,
			MaxTokens:   1024,
			Temperature: 0.1,
		},
		Search: SearchConfig{
			Type:              SearchTypeSerper,
			NumResults:        3,
			SerperBaseURL:     "https://google.serper.dev",
			SearxNGCategories: []string{"general"},
			SearxNGFormat:     "json",
			Language:          "en",
			Region:            "us",
			Timeout:           30 * time.Second,
			MaxRetries:        20,
			BackoffCap:        600 * time.Second,
		},
		Rater: RaterConfig{
			MaxSteps:   5,
			MaxRetries: 10,
		},
		Pipeline: PipelineConfig{
			MaxClaimRetries: 3,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".verity-cache",
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		HTTP: HTTPConfig{
			UserAgent: "Verity/0.1 (+https://github.com/ppiankov/verity)",
		},
		RateLimiting: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 5,
			BurstSize:         5,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
	}
}
