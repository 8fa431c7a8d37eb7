package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/entailrag/internal/model"
)

func sampleReport() *model.BatchReport {
	return &model.BatchReport{
		RunID: "run-1",
		Summaries: []model.PipelineSummary{
			{Pipeline: "baseline", Questions: 2, Scored: 2, ExactMatch: 0.5, F1: 0.75, AvgKept: 2},
			{Pipeline: "subclaim", Questions: 2, Scored: 1, Failures: 1, ExactMatch: 1, F1: 1, Fallbacks: 1, AvgKept: 1},
		},
		Results: []model.QuestionResult{
			{
				QuestionID: "a",
				Pipeline:   "baseline",
				Trace: &model.Trace{
					Answer:         "Verdi",
					Prompt:         "Context:\n...",
					PassagesBefore: []model.RetrievedPassage{{Chunk: model.Chunk{ID: 1, Text: "x"}}},
				},
			},
			{QuestionID: "b", Pipeline: "subclaim", Error: "subclaim pipeline: generate: timeout"},
		},
	}
}

func TestRenderJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.json")

	if err := NewRenderer(false).RenderJSON(sampleReport(), path); err != nil {
		t.Fatalf("RenderJSON failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got model.BatchReport
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.RunID != "run-1" || len(got.Results) != 2 {
		t.Errorf("unexpected report: %+v", got)
	}
	if got.Results[0].Trace.Prompt != "" || got.Results[0].Trace.PassagesBefore != nil {
		t.Error("expected trace details stripped")
	}
	if got.Results[0].Trace.Answer != "Verdi" {
		t.Errorf("expected answer kept, got %q", got.Results[0].Trace.Answer)
	}
}

func TestRenderJSON_WithTraces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	report := sampleReport()

	if err := NewRenderer(true).RenderJSON(report, path); err != nil {
		t.Fatalf("RenderJSON failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if !bytes.Contains(data, []byte(`"prompt"`)) {
		t.Error("expected prompt in JSON output")
	}
	if report.Results[0].Trace.Prompt == "" {
		t.Error("renderer must not modify the input report")
	}
}

func TestRenderMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.md")

	if err := NewRenderer(false).RenderMarkdown(sampleReport(), path); err != nil {
		t.Fatalf("RenderMarkdown failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	md := string(data)
	for _, want := range []string{"# Evaluation run-1", "| baseline | 2 | 2 | 0.500 | 0.750 |", "## Failures", "`b` (subclaim)"} {
		if !strings.Contains(md, want) {
			t.Errorf("expected %q in markdown:\n%s", want, md)
		}
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(false).RenderSummary(&buf, sampleReport())

	out := buf.String()
	if !strings.Contains(out, "run-1") || !strings.Contains(out, "subclaim") {
		t.Errorf("unexpected summary:\n%s", out)
	}
}
