package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/verity/internal/model"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(viper.New())
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	def := model.DefaultConfig()
	if cfg.Search.Type != def.Search.Type {
		t.Errorf("search type = %q, want %q", cfg.Search.Type, def.Search.Type)
	}
	if cfg.Search.Timeout != 30*time.Second {
		t.Errorf("search timeout = %v, want 30s", cfg.Search.Timeout)
	}
	if cfg.Rater.MaxSteps != 5 || cfg.Rater.MaxRetries != 10 {
		t.Errorf("unexpected rater defaults: %+v", cfg.Rater)
	}
	if len(cfg.Search.SearxNGCategories) != 1 || cfg.Search.SearxNGCategories[0] != "general" {
		t.Errorf("unexpected categories: %v", cfg.Search.SearxNGCategories)
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
search:
  type: searxng
  searxng_url: http://localhost:8888
  backoff_cap: 2m
rater:
  max_steps: 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("VERITY_SEARCH_NUM_RESULTS", "7")
	t.Setenv("VERITY_SEARCH_POSTAMBLE", "site:en.wikipedia.org")

	v := viper.New()
	v.SetConfigFile(path)
	configureEnv(v)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("read config: %v", err)
	}

	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.Search.Type != "searxng" || cfg.Search.SearxNGURL != "http://localhost:8888" {
		t.Errorf("file values not applied: %+v", cfg.Search)
	}
	if cfg.Search.BackoffCap != 2*time.Minute {
		t.Errorf("backoff cap = %v, want 2m", cfg.Search.BackoffCap)
	}
	if cfg.Rater.MaxSteps != 3 {
		t.Errorf("max steps = %d, want 3", cfg.Rater.MaxSteps)
	}
	if cfg.Search.NumResults != 7 {
		t.Errorf("num results = %d, want 7 from env", cfg.Search.NumResults)
	}
	if cfg.Search.Postamble != "site:en.wikipedia.org" {
		t.Errorf("postamble = %q", cfg.Search.Postamble)
	}
	if cfg.Rater.MaxRetries != 10 {
		t.Errorf("unset key lost its default: max retries = %d", cfg.Rater.MaxRetries)
	}
}

func TestLoadConfig_SearchOverrides(t *testing.T) {
	v := viper.New()
	configureEnv(v)

	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Search.SafeSearch != nil || cfg.Search.SearxNGEngines != nil {
		t.Errorf("overrides should be unset by default: %+v", cfg.Search)
	}

	t.Setenv("VERITY_SEARCH_SAFESEARCH", "2")
	t.Setenv("VERITY_SEARCH_SEARXNG_ENGINES", "wikipedia,wikidata")

	cfg, err = loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Search.SafeSearch == nil || *cfg.Search.SafeSearch != 2 {
		t.Errorf("safesearch = %v, want 2", cfg.Search.SafeSearch)
	}
	if len(cfg.Search.SearxNGEngines) != 2 || cfg.Search.SearxNGEngines[1] != "wikidata" {
		t.Errorf("engines = %v", cfg.Search.SearxNGEngines)
	}
}

func TestApplyCredentialEnv(t *testing.T) {
	env := map[string]string{
		"ANTHROPIC_API_KEY": "sk-ant-test",
		"SERPER_API_KEY":    "serper-key",
		"SEARXNG_URL":       "http://searx.local",
	}
	getenv := func(k string) string { return env[k] }

	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "anthropic"
	cfg.Search.SearxNGURL = "http://configured"
	applyCredentialEnv(cfg, getenv)

	if cfg.LLM.APIKey != "sk-ant-test" {
		t.Errorf("LLM key = %q", cfg.LLM.APIKey)
	}
	if cfg.Search.SerperAPIKey != "serper-key" {
		t.Errorf("serper key = %q", cfg.Search.SerperAPIKey)
	}
	if cfg.Search.SearxNGURL != "http://configured" {
		t.Errorf("configured URL overwritten: %q", cfg.Search.SearxNGURL)
	}
}

func TestRedacted(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.APIKey = "sk-1234567890abcdef"
	cfg.Search.SerperAPIKey = "short"

	out := redacted(cfg)
	if strings.Contains(out.LLM.APIKey, "567890") {
		t.Errorf("API key not masked: %q", out.LLM.APIKey)
	}
	if out.Search.SerperAPIKey != "****" {
		t.Errorf("short key = %q, want ****", out.Search.SerperAPIKey)
	}
	if cfg.LLM.APIKey != "sk-1234567890abcdef" {
		t.Error("redacted modified the original config")
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".verity", "config.yaml")

	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}

	var cfg model.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if cfg.Search.Type != model.SearchTypeSerper {
		t.Errorf("search type = %q", cfg.Search.Type)
	}

	if err := writeDefaultConfig(path); err == nil {
		t.Error("expected error when config already exists")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"q1":            "q1",
		"a/b:c":         "a_b_c",
		"  two words  ": "two-words",
		"..":            "record",
		"../etc/passwd": "_etc_passwd",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
