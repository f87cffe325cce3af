package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ppiankov/verity/internal/util"
	"github.com/sashabaranov/go-openai"
)

// OpenAIGenerator implements the Generator interface for OpenAI models
type OpenAIGenerator struct {
	client *openai.Client
	config Config
}

// NewOpenAIGenerator creates a new OpenAI generator
func NewOpenAIGenerator(config Config) (*OpenAIGenerator, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.HTTPProxy != "" || config.HTTPSProxy != "" {
		clientConfig.HTTPClient = &http.Client{
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
			},
		}
	}

	if config.Model == "" {
		config.Model = openai.GPT4oMini
	}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Name returns the provider name
func (g *OpenAIGenerator) Name() string {
	return "openai"
}

// IsAvailable checks if the provider is properly configured
func (g *OpenAIGenerator) IsAvailable(ctx context.Context) bool {
	// Listing models is the cheapest authenticated call
	if _, err := g.client.ListModels(ctx); err != nil {
		g.config.logger().Warn("OpenAI API check failed", "error", err)
		return false
	}
	return true
}

// Generate produces a completion using OpenAI's Chat Completions API
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, debug bool) (string, error) {
	timeout := time.Duration(g.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model: g.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   g.config.maxTokens(),
		Temperature: g.config.Temperature,
	}

	resp, err := g.client.CreateChatCompletion(ctxWithTimeout, chatReq)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	completion := resp.Choices[0].Message.Content
	logExchange(g.config.logger(), debug, g.Name(), g.config.Model, prompt, completion)

	return completion, nil
}
