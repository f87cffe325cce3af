package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ppiankov/verity/internal/model"
)

// Evaluator scores a single prompt/response pair
type Evaluator interface {
	Evaluate(ctx context.Context, prompt, response string) (*model.Report, error)
}

// Record is one line of a batch input file
type Record struct {
	ID       string `json:"id,omitempty"`
	Prompt   string `json:"prompt"`
	Response string `json:"response"`
	Line     int    `json:"-"`
}

// EvalJob evaluates one record
type EvalJob struct {
	Record    Record
	Evaluator Evaluator
}

// Execute implements Job
func (j *EvalJob) Execute(ctx context.Context) Result {
	report, err := j.Evaluator.Evaluate(ctx, j.Record.Prompt, j.Record.Response)
	return &EvalResult{
		Record: j.Record,
		Report: report,
		Error:  err,
	}
}

// EvalResult is the outcome of one EvalJob
type EvalResult struct {
	Record Record
	Report *model.Report
	Error  error
}

// GetError implements Result
func (r *EvalResult) GetError() error {
	return r.Error
}

// BatchProcessor evaluates many records with bounded parallelism. Claims
// inside one response are always evaluated sequentially; only whole
// responses run side by side.
type BatchProcessor struct {
	evaluator   Evaluator
	concurrency int
	logger      *slog.Logger
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(evaluator Evaluator, concurrency int, logger *slog.Logger) *BatchProcessor {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{
		evaluator:   evaluator,
		concurrency: concurrency,
		logger:      logger,
	}
}

// ProcessRecords evaluates records and returns one result per record, in
// input order. Records that never ran because ctx was cancelled carry the
// context error.
func (b *BatchProcessor) ProcessRecords(ctx context.Context, records []Record) []*EvalResult {
	if len(records) == 0 {
		return nil
	}

	pool := NewPool(ctx, b.concurrency)
	done := 0
	pool.OnResult = func(r Result) {
		done++
		res := r.(*EvalResult)
		if res.Error != nil {
			b.logger.Warn("evaluation failed", "line", res.Record.Line, "id", res.Record.ID, "error", res.Error, "done", done, "total", len(records))
			return
		}
		b.logger.Info("evaluation complete", "line", res.Record.Line, "id", res.Record.ID, "claims", res.Report.NumClaims, "done", done, "total", len(records))
	}
	pool.Start()

	for _, record := range records {
		if !pool.Submit(&EvalJob{Record: record, Evaluator: b.evaluator}) {
			break
		}
	}

	raw := pool.Wait()

	results := make([]*EvalResult, len(records))
	for i, record := range records {
		if i < len(raw) && raw[i] != nil {
			results[i] = raw[i].(*EvalResult)
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		results[i] = &EvalResult{Record: record, Error: err}
	}

	return results
}

// ProcessFile reads a JSONL file and evaluates every record in it
func (b *BatchProcessor) ProcessFile(ctx context.Context, path string) ([]*EvalResult, error) {
	records, err := ReadRecordsFromFile(path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no records found in %s", path)
	}
	return b.ProcessRecords(ctx, records), nil
}

// ReadRecordsFromFile reads batch records from a JSONL file
func ReadRecordsFromFile(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ReadRecords(file)
}

// ReadRecords parses JSONL records, one {"prompt", "response"} object per
// line. Blank lines and lines starting with # are skipped.
func ReadRecords(r io.Reader) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var record Record
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if strings.TrimSpace(record.Response) == "" {
			return nil, fmt.Errorf("line %d: missing response", lineNo)
		}
		record.Line = lineNo
		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	return records, nil
}

type resultLine struct {
	ID     string        `json:"id,omitempty"`
	Line   int           `json:"line"`
	Report *model.Report `json:"report,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// WriteResults writes one JSON object per result, in the given order
func WriteResults(w io.Writer, results []*EvalResult) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, res := range results {
		line := resultLine{ID: res.Record.ID, Line: res.Record.Line, Report: res.Report}
		if res.Error != nil {
			line.Error = res.Error.Error()
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	return nil
}
