package llm

import (
	"strings"
	"testing"

	"github.com/ppiankov/verity/internal/model"
)

func TestNewGenerator(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		wantName string
		wantErr  string
	}{
		{name: "openai", config: Config{Provider: "openai", APIKey: "k"}, wantName: "openai"},
		{name: "anthropic", config: Config{Provider: "anthropic", APIKey: "k"}, wantName: "anthropic"},
		{name: "claude alias", config: Config{Provider: "Claude", APIKey: "k"}, wantName: "anthropic"},
		{name: "ollama", config: Config{Provider: "ollama", Model: "llama3.1"}, wantName: "ollama"},
		{name: "empty", config: Config{}, wantErr: "no LLM provider configured"},
		{name: "unknown", config: Config{Provider: "bard"}, wantErr: "unknown LLM provider: bard"},
		{name: "openai without key", config: Config{Provider: "openai"}, wantErr: "API key is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, err := NewGenerator(tt.config)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if gen.Name() != tt.wantName {
				t.Errorf("Expected name %s, got %s", tt.wantName, gen.Name())
			}
		})
	}
}

func TestConfigFromModel(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.APIKey = "secret"
	cfg.HTTP.HTTPSProxy = "http://proxy:8080"

	got := ConfigFromModel(cfg)
	if got.Provider != cfg.LLM.Provider || got.Model != cfg.LLM.Model {
		t.Errorf("Provider/model not copied: %+v", got)
	}
	if got.APIKey != "secret" {
		t.Errorf("Expected API key to be copied, got %q", got.APIKey)
	}
	if got.HTTPSProxy != "http://proxy:8080" {
		t.Errorf("Expected HTTPS proxy to be copied, got %q", got.HTTPSProxy)
	}
}

func TestAPIKeyEnv(t *testing.T) {
	if APIKeyEnv("openai") != "OPENAI_API_KEY" {
		t.Error("Expected OPENAI_API_KEY")
	}
	if APIKeyEnv("claude") != "ANTHROPIC_API_KEY" {
		t.Error("Expected ANTHROPIC_API_KEY")
	}
	if APIKeyEnv("ollama") != "" {
		t.Error("Expected no key env for ollama")
	}
}
