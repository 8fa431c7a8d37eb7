// Package report renders evaluation results as JSON, Markdown and terminal summaries
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/entailrag/internal/model"
)

// Renderer writes batch reports
type Renderer struct {
	includeTraces bool
}

// NewRenderer creates a renderer; includeTraces keeps prompts and passages in the JSON output
func NewRenderer(includeTraces bool) *Renderer {
	return &Renderer{includeTraces: includeTraces}
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *model.BatchReport, path string) error {
	out := report
	if !r.includeTraces {
		out = withoutTraces(report)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	return writeFile(path, append(data, '\n'))
}

// RenderMarkdown writes the per-pipeline summary table and failures as Markdown
func (r *Renderer) RenderMarkdown(report *model.BatchReport, path string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# Evaluation %s\n\n", report.RunID)
	b.WriteString("| Pipeline | Questions | Scored | EM | F1 | Fallbacks | Avg kept | Failures |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|\n")
	for _, s := range report.Summaries {
		fmt.Fprintf(&b, "| %s | %d | %d | %.3f | %.3f | %d | %.2f | %d |\n",
			s.Pipeline, s.Questions, s.Scored, s.ExactMatch, s.F1, s.Fallbacks, s.AvgKept, s.Failures)
	}

	var failures []model.QuestionResult
	for _, res := range report.Results {
		if res.Error != "" {
			failures = append(failures, res)
		}
	}
	if len(failures) > 0 {
		b.WriteString("\n## Failures\n\n")
		for _, f := range failures {
			fmt.Fprintf(&b, "- `%s` (%s): %s\n", f.QuestionID, f.Pipeline, f.Error)
		}
	}

	return writeFile(path, []byte(b.String()))
}

// RenderSummary prints a compact summary for the terminal
func (r *Renderer) RenderSummary(w io.Writer, report *model.BatchReport) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  Evaluation Complete (%s)\n", report.RunID)
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  %-10s %6s %6s %7s %7s %9s %8s\n", "PIPELINE", "N", "FAIL", "EM", "F1", "FALLBACK", "KEPT")
	for _, s := range report.Summaries {
		fmt.Fprintf(w, "  %-10s %6d %6d %7.3f %7.3f %9d %8.2f\n",
			s.Pipeline, s.Questions, s.Failures, s.ExactMatch, s.F1, s.Fallbacks, s.AvgKept)
	}
	fmt.Fprintf(w, "\n")
}

func withoutTraces(report *model.BatchReport) *model.BatchReport {
	out := *report
	out.Results = make([]model.QuestionResult, len(report.Results))
	for i, res := range report.Results {
		if res.Trace != nil {
			t := *res.Trace
			t.Prompt = ""
			t.PassagesBefore = nil
			res.Trace = &t
		}
		out.Results[i] = res
	}
	return &out
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
