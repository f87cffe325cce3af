package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/verity/internal/model"
)

type mockEvaluator struct {
	mu      sync.Mutex
	calls   []string
	failOn  string
	delayOn string
}

func (m *mockEvaluator) Evaluate(ctx context.Context, prompt, response string) (*model.Report, error) {
	m.mu.Lock()
	m.calls = append(m.calls, response)
	m.mu.Unlock()

	if response == m.delayOn {
		select {
		case <-time.After(30 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if response == m.failOn {
		return nil, errors.New("evaluation failed")
	}
	return &model.Report{Prompt: prompt, Response: response, NumClaims: 1}, nil
}

func records(responses ...string) []Record {
	out := make([]Record, len(responses))
	for i, r := range responses {
		out[i] = Record{Prompt: "p", Response: r, Line: i + 1}
	}
	return out
}

func TestBatchProcessor_ProcessRecords(t *testing.T) {
	evaluator := &mockEvaluator{delayOn: "a"}
	processor := NewBatchProcessor(evaluator, 2, nil)

	results := processor.ProcessRecords(context.Background(), records("a", "b", "c"))
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	for i, want := range []string{"a", "b", "c"} {
		if results[i].Error != nil {
			t.Errorf("result %d: unexpected error %v", i, results[i].Error)
			continue
		}
		if results[i].Report.Response != want {
			t.Errorf("result %d: got response %q, want %q", i, results[i].Report.Response, want)
		}
		if results[i].Record.Line != i+1 {
			t.Errorf("result %d: got line %d", i, results[i].Record.Line)
		}
	}
}

func TestBatchProcessor_ProcessRecords_Error(t *testing.T) {
	evaluator := &mockEvaluator{failOn: "bad"}
	processor := NewBatchProcessor(evaluator, 2, nil)

	results := processor.ProcessRecords(context.Background(), records("good", "bad"))
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].GetError() != nil {
		t.Errorf("unexpected error: %v", results[0].GetError())
	}
	if results[1].GetError() == nil {
		t.Error("expected error for failing record")
	}
	if results[1].Report != nil {
		t.Error("failed record should carry no report")
	}
}

func TestBatchProcessor_ProcessRecords_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockEvaluator{}, 2, nil)

	if results := processor.ProcessRecords(context.Background(), nil); len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessRecords_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	evaluator := &mockEvaluator{}
	processor := NewBatchProcessor(evaluator, 1, nil)

	results := processor.ProcessRecords(ctx, records("a", "b"))
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for i, res := range results {
		if !errors.Is(res.Error, context.Canceled) {
			t.Errorf("result %d: expected context.Canceled, got %v", i, res.Error)
		}
	}
}

func TestReadRecords(t *testing.T) {
	input := strings.Join([]string{
		`# comment`,
		``,
		`{"id":"q1","prompt":"Who is Lanny Flaherty?","response":"Lanny Flaherty is an American actor."}`,
		`   `,
		`{"prompt":"p","response":"r"}`,
	}, "\n")

	got, err := ReadRecords(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadRecords failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].ID != "q1" || got[0].Line != 3 {
		t.Errorf("unexpected first record: %+v", got[0])
	}
	if got[1].Line != 5 {
		t.Errorf("expected second record on line 5, got %d", got[1].Line)
	}
}

func TestReadRecords_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bad json", "{\"prompt\":\"p\",\"response\":\"r\"}\n{not json", "line 2"},
		{"missing response", `{"prompt":"p"}`, "line 1: missing response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadRecords(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestReadRecordsFromFile_NonExistent(t *testing.T) {
	if _, err := ReadRecordsFromFile("/nonexistent/file.jsonl"); err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.jsonl")
	content := `{"prompt":"p1","response":"r1"}` + "\n" + `{"prompt":"p2","response":"r2"}` + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	processor := NewBatchProcessor(&mockEvaluator{}, 2, nil)
	results, err := processor.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[1].Report.Prompt != "p2" {
		t.Errorf("expected p2, got %q", results[1].Report.Prompt)
	}
}

func TestBatchProcessor_ProcessFile_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.jsonl")
	if err := os.WriteFile(path, []byte("# nothing here\n\n"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	processor := NewBatchProcessor(&mockEvaluator{}, 2, nil)
	if _, err := processor.ProcessFile(context.Background(), path); err == nil {
		t.Error("expected error for file without records")
	}
}

func TestWriteResults(t *testing.T) {
	results := []*EvalResult{
		{Record: Record{ID: "a", Line: 1}, Report: &model.Report{Prompt: "p", Response: "r"}},
		{Record: Record{Line: 2}, Error: errors.New("boom")},
	}

	var buf bytes.Buffer
	if err := WriteResults(&buf, results); err != nil {
		t.Fatalf("WriteResults failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], `"id":"a"`) || !strings.Contains(lines[0], `"report":{`) {
		t.Errorf("unexpected first line: %s", lines[0])
	}

	var second map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if second["error"] != "boom" || second["report"] != nil {
		t.Errorf("unexpected error line: %v", second)
	}
}
