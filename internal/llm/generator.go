package llm

import (
	"context"
	"log/slog"
)

// Generator is the text-generation collaborator used by the rater and the
// upstream extraction stages. Any string, including an empty one, is a
// valid completion; callers decide whether it is usable.
type Generator interface {
	// Name returns the provider name
	Name() string

	// Generate returns the model's completion for prompt. When debug is set the
	// prompt and the completion are logged at debug level.
	Generate(ctx context.Context, prompt string, debug bool) (string, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Temperature for sampling; raters want this low
	Temperature float32

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string

	// Logger receives debug exchanges; slog.Default() when nil
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:    "openai",
		Timeout:     60,
		MaxTokens:   1024,
		Temperature: 0.1,
	}
}

const systemPrompt = "You are a careful fact-checking assistant. Follow the instructions exactly and keep the requested output format."

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c Config) maxTokens() int {
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 1024
}

// logExchange writes a prompt/completion pair when debug output was requested
func logExchange(logger *slog.Logger, debug bool, provider, model, prompt, completion string) {
	if !debug {
		return
	}
	logger.Debug("llm exchange",
		"provider", provider,
		"model", model,
		"prompt", prompt,
		"completion", completion,
	)
}
