package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/verity/internal/model"
)

// Renderer writes reports as JSON, Markdown or a short terminal summary
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// WriteJSON encodes report as indented JSON
func (r *Renderer) WriteJSON(w io.Writer, report *model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(report)
}

// RenderJSON writes report to path; "-" writes to stdout
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	return writeTo(path, func(w io.Writer) error { return r.WriteJSON(w, report) })
}

// RenderMarkdown writes the Markdown report to path; "-" writes to stdout
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeTo(path, func(w io.Writer) error { return r.WriteMarkdown(w, report) })
}

// WriteMarkdown renders a human-readable report
func (r *Renderer) WriteMarkdown(w io.Writer, report *model.Report) error {
	var b strings.Builder

	b.WriteString("# Factuality Report\n\n")
	fmt.Fprintf(&b, "**Prompt:** %s\n\n", oneLine(report.Prompt))
	fmt.Fprintf(&b, "**Search:** %s", report.SearchType)
	if len(report.SearchTypesUsed) > 0 {
		fmt.Fprintf(&b, " (used: %s)", strings.Join(report.SearchTypesUsed, ", "))
	}
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "**Claims:** %d extracted, %d checked, %d dropped\n\n",
		report.NumClaims, len(report.CheckedStatements), len(report.Failures))

	b.WriteString("## Verdicts\n\n")
	b.WriteString("| Label | Count |\n|---|---|\n")
	for _, label := range report.SortedLabels() {
		fmt.Fprintf(&b, "| %s | %d |\n", label, report.Count(label))
	}
	b.WriteString("\n")

	if len(report.CheckedStatements) > 0 {
		b.WriteString("## Statements\n\n")
		for i, s := range report.CheckedStatements {
			fmt.Fprintf(&b, "%d. **%s** %s\n", i+1, s.Annotation, oneLine(s.SelfContainedAtomicFact))
			if s.SelfContainedAtomicFact != s.AtomicFact {
				fmt.Fprintf(&b, "   - extracted as: %s\n", oneLine(s.AtomicFact))
			}
			if i < len(report.PastStepsAll) {
				for _, search := range report.PastStepsAll[i].Searches {
					fmt.Fprintf(&b, "   - searched (%s): `%s`\n", search.SearchType, oneLine(search.Query))
				}
			}
		}
		b.WriteString("\n")
	}

	if len(report.Failures) > 0 {
		b.WriteString("## Dropped Claims\n\n")
		for _, f := range report.Failures {
			fmt.Fprintf(&b, "- %s (%d attempts): %s\n", oneLine(f.AtomicFact), f.Attempts, oneLine(f.Error))
		}
		b.WriteString("\n")
	}

	if r.includeFooter {
		b.WriteString("---\n\n")
		fmt.Fprintf(&b, "_Run %s at %s. Verdicts reflect the retrieved evidence, not ground truth._\n",
			report.RunID, report.EvaluatedAt.Format("2006-01-02 15:04:05 MST"))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteSummary prints verdict counts in one block
func (r *Renderer) WriteSummary(w io.Writer, report *model.Report) {
	fmt.Fprintf(w, "Claims: %d extracted, %d checked, %d dropped\n",
		report.NumClaims, len(report.CheckedStatements), len(report.Failures))
	for _, label := range report.SortedLabels() {
		fmt.Fprintf(w, "  %-14s %d\n", label+":", report.Count(label))
	}
	if len(report.SearchTypesUsed) > 0 {
		fmt.Fprintf(w, "Search providers: %s\n", strings.Join(report.SearchTypesUsed, ", "))
	}
}

func writeTo(path string, write func(io.Writer) error) (err error) {
	if path == "-" {
		return write(os.Stdout)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	return write(f)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
