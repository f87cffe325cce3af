package cli

import (
	"strings"

	"github.com/ppiankov/verity/internal/model"
	"github.com/spf13/cobra"
)

// overrides are the per-run flags shared by evaluate and batch
type overrides struct {
	searchType  string
	postamble   string
	numResults  int
	llmProvider string
	llmModel    string
	maxSteps    int
	noCache     bool
	noFooter    bool
	httpProxy   string
	httpsProxy  string
	engines     []string
	safeSearch  int
}

func (o *overrides) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.searchType, "search-type", "", "search provider: serper (web) or searxng (meta-search)")
	cmd.Flags().StringVar(&o.postamble, "postamble", "", "text appended to every search query, e.g. site:en.wikipedia.org")
	cmd.Flags().IntVar(&o.numResults, "num-results", 0, "search results folded into each evidence text")
	cmd.Flags().StringVar(&o.llmProvider, "llm-provider", "", "LLM provider (openai, anthropic, ollama)")
	cmd.Flags().StringVar(&o.llmModel, "llm-model", "", "LLM model name")
	cmd.Flags().StringSliceVar(&o.engines, "engines", nil, "restrict SearxNG to these engines")
	cmd.Flags().IntVar(&o.safeSearch, "safesearch", 0, "SearxNG safesearch level (0, 1, 2)")
	cmd.Flags().IntVar(&o.maxSteps, "max-steps", 0, "search steps per fact before the final verdict")
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "disable the search evidence cache")
	cmd.Flags().BoolVar(&o.noFooter, "no-footer", false, "disable footer in Markdown reports")
	cmd.Flags().StringVar(&o.httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	cmd.Flags().StringVar(&o.httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

// apply copies every flag the user actually set onto cfg
func (o *overrides) apply(cmd *cobra.Command, cfg *model.Config) {
	changed := cmd.Flags().Changed

	if changed("search-type") {
		cfg.Search.Type = o.searchType
	}
	if changed("postamble") {
		cfg.Search.Postamble = o.postamble
	}
	if changed("num-results") {
		cfg.Search.NumResults = o.numResults
	}
	if changed("engines") {
		cfg.Search.SearxNGEngines = o.engines
	}
	if changed("safesearch") {
		level := o.safeSearch
		cfg.Search.SafeSearch = &level
	}
	if changed("llm-provider") {
		if !strings.EqualFold(cfg.LLM.Provider, o.llmProvider) {
			cfg.LLM.APIKey = ""
			cfg.LLM.BaseURL = ""
		}
		cfg.LLM.Provider = o.llmProvider
	}
	if changed("llm-model") {
		cfg.LLM.Model = o.llmModel
	}
	if changed("max-steps") {
		cfg.Rater.MaxSteps = o.maxSteps
	}
	if o.noCache {
		cfg.Cache.Enabled = false
	}
	if o.noFooter {
		cfg.Output.IncludeFooter = false
	}
	if changed("http-proxy") {
		cfg.HTTP.HTTPProxy = o.httpProxy
	}
	if changed("https-proxy") {
		cfg.HTTP.HTTPSProxy = o.httpsProxy
	}
	cfg.Output.Verbose = cfg.Output.Verbose || verbose
	cfg.Rater.Debug = cfg.Rater.Debug || debug
}
