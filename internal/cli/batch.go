package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ppiankov/verity/internal/pipeline"
	"github.com/ppiankov/verity/internal/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	batchWorkers     int
	batchOutputDir   string
	batchTimeout     time.Duration
	batchMetricsAddr string
	batchNoMarkdown  bool
	batchFlags       overrides
)

var batchCmd = &cobra.Command{
	Use:   "batch <file.jsonl>",
	Short: "Evaluate many prompt/response pairs from a JSONL file",
	Long: `Batch reads one {"prompt": ..., "response": ...} object per line and
evaluates the responses in parallel. Facts inside one response are still
checked one after another.

Each record gets <id>.json (and <id>.md) in the output directory, and
results.jsonl lists every record in input order with its report or error.

Example:
  verity batch responses.jsonl
  verity batch responses.jsonl --workers 8 --output-dir ./reports
  verity batch responses.jsonl --metrics-addr :9090`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "responses evaluated in parallel (default from config)")
	batchCmd.Flags().StringVar(&batchOutputDir, "output-dir", "./verity-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 12*time.Hour, "total timeout for the batch")
	batchCmd.Flags().StringVar(&batchMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the batch runs")
	batchCmd.Flags().BoolVar(&batchNoMarkdown, "no-md", false, "skip per-record Markdown reports")
	batchFlags.register(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	batchFlags.apply(cmd, cfg)
	applyCredentialEnv(cfg, os.Getenv)
	if batchWorkers > 0 {
		cfg.Concurrency.Workers = batchWorkers
	}

	records, err := worker.ReadRecordsFromFile(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("no records found in %s", file)
	}

	logger := newLogger()
	evaluator, err := pipeline.Build(cfg, logger)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(batchOutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()

	if batchMetricsAddr != "" {
		shutdown := serveMetrics(batchMetricsAddr)
		defer shutdown()
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s (%d records)\n", file, len(records))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Search:       %s\n", cfg.Search.Type)
	fmt.Fprintf(os.Stderr, "  LLM:          %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", batchOutputDir)
	fmt.Fprintf(os.Stderr, "\n")

	processor := worker.NewBatchProcessor(evaluator, cfg.Concurrency.Workers, logger)
	results := processor.ProcessRecords(ctx, records)

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	success, failure := 0, 0
	for _, result := range results {
		name := reportName(result.Record)
		if result.Error != nil {
			failure++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", name, result.Error)
			continue
		}

		if err := renderer.RenderJSON(result.Report, filepath.Join(batchOutputDir, name+".json")); err != nil {
			failure++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", name, err)
			continue
		}
		if !batchNoMarkdown {
			if err := renderer.RenderMarkdown(result.Report, filepath.Join(batchOutputDir, name+".md")); err != nil {
				fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", name, err)
			}
		}

		success++
		fmt.Fprintf(os.Stderr, "✓ %s (%d claims, %d dropped)\n", name, result.Report.NumClaims, len(result.Report.Failures))
	}

	if err := writeResultsFile(filepath.Join(batchOutputDir, "results.jsonl"), results); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d responses\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", success)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failure)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", batchOutputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if ctx.Err() != nil {
		return fmt.Errorf("batch interrupted: %w", ctx.Err())
	}
	return nil
}

func writeResultsFile(path string, results []*worker.EvalResult) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create results file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close results file: %w", closeErr)
		}
	}()

	if err := worker.WriteResults(f, results); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}

func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func serveMetrics(addr string) func() {
	server := &http.Server{Addr: addr, Handler: metricsHandler(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}

// reportName derives a file stem from the record id, or its line number
func reportName(record worker.Record) string {
	if record.ID == "" {
		return "line-" + strconv.Itoa(record.Line)
	}
	return sanitizeFilename(record.ID)
}

func sanitizeFilename(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		case ' ', '\t', '\n':
			return '-'
		}
		return r
	}, strings.TrimSpace(s))

	s = strings.Trim(s, ".")
	if s == "" {
		s = "record"
	}
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
