package score

import (
	"math"
	"testing"

	"github.com/ppiankov/entailrag/internal/model"
)

func TestExactMatch(t *testing.T) {
	tests := []struct {
		pred, gold string
		want       float64
	}{
		{"Yes", "yes", 1},
		{"  Chief of Protocol \n", "chief of protocol", 1},
		{"yes.", "yes", 0},
		{"", "", 1},
		{"Greenwich Village", "Greenwich Village, New York City", 0},
	}

	for _, tt := range tests {
		if got := ExactMatch(tt.pred, tt.gold); got != tt.want {
			t.Errorf("ExactMatch(%q, %q) = %v, want %v", tt.pred, tt.gold, got, tt.want)
		}
	}
}

func TestF1(t *testing.T) {
	tests := []struct {
		name       string
		pred, gold string
		want       float64
	}{
		{"identical", "Greenwich Village", "greenwich village", 1},
		{"no overlap", "Paris", "London", 0},
		{"partial", "Greenwich Village", "Greenwich Village, New York City", 2 * (1.0 * 2.0 / 5.0) / (1.0 + 2.0/5.0)},
		{"punctuation ignored", "yes.", "yes", 1},
		{"multiset", "the the cat", "the cat", 2 * (2.0 / 3.0) * 1 / (2.0/3.0 + 1)},
		{"unicode words", "Téa Leoni", "téa leoni", 1},
		{"empty prediction", "", "yes", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := F1(tt.pred, tt.gold); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("F1(%q, %q) = %v, want %v", tt.pred, tt.gold, got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	results := []model.QuestionResult{
		{Pipeline: "baseline", Score: &model.Score{ExactMatch: 1, F1: 1}, Trace: &model.Trace{PassagesAfter: make([]model.RetrievedPassage, 2)}},
		{Pipeline: "subclaim", Score: &model.Score{ExactMatch: 0, F1: 0.5}, Trace: &model.Trace{PassagesAfter: make([]model.RetrievedPassage, 1)}},
		{Pipeline: "baseline", Score: &model.Score{ExactMatch: 0, F1: 0.5}, Trace: &model.Trace{PassagesAfter: make([]model.RetrievedPassage, 2)}},
		{Pipeline: "subclaim", Error: "subclaim pipeline: generate: 503"},
		{Pipeline: "subclaim", Trace: &model.Trace{PassagesAfter: make([]model.RetrievedPassage, 2), FallbackUsed: true}},
	}

	got := NewScorer().Summarize(results)
	if len(got) != 2 || got[0].Pipeline != "baseline" || got[1].Pipeline != "subclaim" {
		t.Fatalf("Unexpected summaries: %+v", got)
	}

	base := got[0]
	if base.Questions != 2 || base.Scored != 2 || base.ExactMatch != 0.5 || base.F1 != 0.75 || base.AvgKept != 2 {
		t.Errorf("Unexpected baseline summary: %+v", base)
	}

	sub := got[1]
	if sub.Questions != 3 || sub.Failures != 1 || sub.Scored != 1 || sub.Fallbacks != 1 {
		t.Errorf("Unexpected subclaim summary: %+v", sub)
	}
	if sub.F1 != 0.5 || sub.AvgKept != 1.5 {
		t.Errorf("Expected F1 0.5 and 1.5 kept on average, got %+v", sub)
	}
}
