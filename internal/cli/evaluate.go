package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ppiankov/verity/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	evalPrompt       string
	evalResponse     string
	evalResponseFile string
	evalOutJSON      string
	evalOutMD        string
	evalTimeout      time.Duration
	evalFlags        overrides
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate the factuality of a single model response",
	Long: `Evaluate splits a response into atomic facts, classifies each fact as
relevant or irrelevant to the prompt, and rates every relevant fact against
search evidence.

Example:
  verity evaluate --prompt "Who is Lanny Flaherty?" --response-file answer.txt
  verity evaluate --prompt "..." --response "..." --search-type searxng --json -
  cat answer.txt | verity evaluate --prompt "..." --response-file - --md report.md`,
	Args: cobra.NoArgs,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evalPrompt, "prompt", "", "prompt the response answers")
	evaluateCmd.Flags().StringVar(&evalResponse, "response", "", "response text to evaluate")
	evaluateCmd.Flags().StringVar(&evalResponseFile, "response-file", "", "read the response from a file (- for stdin)")
	evaluateCmd.Flags().StringVar(&evalOutJSON, "json", "report.json", "output JSON path (- for stdout, empty to skip)")
	evaluateCmd.Flags().StringVar(&evalOutMD, "md", "", "output Markdown path (optional)")
	evaluateCmd.Flags().DurationVar(&evalTimeout, "timeout", 30*time.Minute, "overall evaluation timeout (search backoff can be long)")
	evalFlags.register(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	response, err := readResponse(cmd.InOrStdin())
	if err != nil {
		return err
	}

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	evalFlags.apply(cmd, cfg)
	applyCredentialEnv(cfg, os.Getenv)

	logger := newLogger()
	evaluator, err := pipeline.Build(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, evalTimeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Search:  %s\n", cfg.Search.Type)
		fmt.Fprintf(os.Stderr, "LLM:     %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
		fmt.Fprintf(os.Stderr, "Cache:   %v\n", cfg.Cache.Enabled)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", evalTimeout)
		fmt.Fprintln(os.Stderr)
	}

	report, err := evaluator.Evaluate(ctx, evalPrompt, response)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	if evalOutJSON != "" {
		if err := renderer.RenderJSON(report, evalOutJSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
	}
	if evalOutMD != "" {
		if err := renderer.RenderMarkdown(report, evalOutMD); err != nil {
			return fmt.Errorf("render Markdown: %w", err)
		}
	}

	renderer.WriteSummary(os.Stderr, report)
	return nil
}

func readResponse(stdin io.Reader) (string, error) {
	switch {
	case evalResponse != "" && evalResponseFile != "":
		return "", fmt.Errorf("use either --response or --response-file, not both")
	case evalResponse != "":
		return evalResponse, nil
	case evalResponseFile == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	case evalResponseFile != "":
		data, err := os.ReadFile(evalResponseFile)
		if err != nil {
			return "", fmt.Errorf("read response file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	default:
		return "", fmt.Errorf("a response is required (--response or --response-file)")
	}
}
