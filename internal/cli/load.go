package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/verity/internal/llm"
	"github.com/ppiankov/verity/internal/model"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Keys omitted from the marshalled defaults because they are empty. They
// still need registering so VERITY_* variables can set them.
var optionalKeys = []string{
	"llm.api_key",
	"llm.base_url",
	"search.postamble",
	"search.serper_api_key",
	"search.searxng_url",
	"search.searxng_api_key",
	"search.time_range",
	"http.http_proxy",
	"http.https_proxy",
	"http.no_proxy",
}

// Keys without a usable zero value. Binding them keeps them unset unless the
// environment provides one.
var unsetKeys = []string{
	"search.searxng_engines",
	"search.safesearch",
}

func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("VERITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range unsetKeys {
		_ = v.BindEnv(key)
	}
}

// loadConfig layers config file and VERITY_* env over DefaultConfig
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()

	if err := registerDefaults(v, cfg); err != nil {
		return nil, err
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyCredentialEnv(cfg, os.Getenv)
	return cfg, nil
}

func registerDefaults(v *viper.Viper, cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}

	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}

	flat := make(map[string]any)
	flatten("", tree, flat)
	for key, value := range flat {
		v.SetDefault(key, value)
	}
	for _, key := range optionalKeys {
		if _, ok := flat[key]; !ok {
			v.SetDefault(key, "")
		}
	}
	return nil
}

func flatten(prefix string, in map[string]any, out map[string]any) {
	for key, value := range in {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			flatten(full, nested, out)
			continue
		}
		out[full] = value
	}
}

// applyCredentialEnv fills secrets from the conventional provider variables
// when neither the config file nor VERITY_* set them.
func applyCredentialEnv(cfg *model.Config, getenv func(string) string) {
	if cfg.LLM.APIKey == "" {
		if name := llm.APIKeyEnv(cfg.LLM.Provider); name != "" {
			cfg.LLM.APIKey = getenv(name)
		}
	}
	if cfg.LLM.BaseURL == "" && strings.EqualFold(cfg.LLM.Provider, "ollama") {
		cfg.LLM.BaseURL = getenv("OLLAMA_BASE_URL")
	}
	if cfg.Search.SerperAPIKey == "" {
		cfg.Search.SerperAPIKey = getenv("SERPER_API_KEY")
	}
	if cfg.Search.SearxNGURL == "" {
		cfg.Search.SearxNGURL = getenv("SEARXNG_URL")
	}
	if cfg.Search.SearxNGAPIKey == "" {
		cfg.Search.SearxNGAPIKey = getenv("SEARXNG_API_KEY")
	}
}

// redacted returns a copy of cfg that is safe to print
func redacted(cfg *model.Config) *model.Config {
	out := *cfg
	out.LLM.APIKey = mask(cfg.LLM.APIKey)
	out.Search.SerperAPIKey = mask(cfg.Search.SerperAPIKey)
	out.Search.SearxNGAPIKey = mask(cfg.Search.SearxNGAPIKey)
	return &out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****" + secret[len(secret)-2:]
}
