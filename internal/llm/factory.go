package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/verity/internal/model"
)

// NewGenerator creates a new LLM generator based on configuration
func NewGenerator(config Config) (Generator, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "openai":
		return NewOpenAIGenerator(config)

	case "anthropic", "claude":
		return NewAnthropicGenerator(config)

	case "ollama":
		return NewOllamaGenerator(config)

	case "":
		return nil, fmt.Errorf("no LLM provider configured (supported: openai, anthropic, ollama)")

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model.Config to llm.Config
func ConfigFromModel(cfg *model.Config) Config {
	return Config{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Timeout:     cfg.LLM.Timeout,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		HTTPProxy:   cfg.HTTP.HTTPProxy,
		HTTPSProxy:  cfg.HTTP.HTTPSProxy,
		NoProxy:     cfg.HTTP.NoProxy,
	}
}

// APIKeyEnv returns the environment variable holding the API key for provider
func APIKeyEnv(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return "OPENAI_API_KEY"
	case "anthropic", "claude":
		return "ANTHROPIC_API_KEY"
	default:
		return ""
	}
}
