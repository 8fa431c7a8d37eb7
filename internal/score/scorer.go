package score

import (
	"regexp"
	"strings"

	"github.com/ppiankov/entailrag/internal/model"
)

// wordPattern matches Unicode word runs (letters, digits, underscore)
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Scorer grades generated answers against gold answers
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score computes exact match and token F1 for one prediction
func (s *Scorer) Score(prediction, gold string) model.Score {
	return model.Score{
		ExactMatch: ExactMatch(prediction, gold),
		F1:         F1(prediction, gold),
	}
}

// ExactMatch is 1 when prediction and gold are equal ignoring case and surrounding space
func ExactMatch(prediction, gold string) float64 {
	if strings.EqualFold(strings.TrimSpace(prediction), strings.TrimSpace(gold)) {
		return 1
	}
	return 0
}

// F1 is the harmonic mean of token precision and recall over lowercase word tokens,
// counting shared tokens as a multiset intersection
func F1(prediction, gold string) float64 {
	predTokens := tokens(prediction)
	goldTokens := tokens(gold)

	goldCounts := make(map[string]int, len(goldTokens))
	for _, t := range goldTokens {
		goldCounts[t]++
	}

	common := 0
	for _, t := range predTokens {
		if goldCounts[t] > 0 {
			goldCounts[t]--
			common++
		}
	}

	if common == 0 {
		return 0
	}

	precision := float64(common) / float64(len(predTokens))
	recall := float64(common) / float64(len(goldTokens))
	return 2 * precision * recall / (precision + recall)
}

func tokens(s string) []string {
	return wordPattern.FindAllString(strings.ToLower(s), -1)
}

// Summarize aggregates results per pipeline, in first-seen pipeline order
// Averages cover scored results only; failures are counted, not scored
func (s *Scorer) Summarize(results []model.QuestionResult) []model.PipelineSummary {
	var order []string
	byName := make(map[string]*model.PipelineSummary)
	kept := make(map[string]int)

	for _, r := range results {
		sum, ok := byName[r.Pipeline]
		if !ok {
			sum = &model.PipelineSummary{Pipeline: r.Pipeline}
			byName[r.Pipeline] = sum
			order = append(order, r.Pipeline)
		}

		sum.Questions++
		if r.Error != "" {
			sum.Failures++
			continue
		}

		if r.Trace != nil {
			kept[r.Pipeline] += len(r.Trace.PassagesAfter)
			if r.Trace.FallbackUsed {
				sum.Fallbacks++
			}
		}

		if r.Score != nil {
			sum.Scored++
			sum.ExactMatch += r.Score.ExactMatch
			sum.F1 += r.Score.F1
		}
	}

	summaries := make([]model.PipelineSummary, 0, len(order))
	for _, name := range order {
		sum := byName[name]
		if sum.Scored > 0 {
			sum.ExactMatch /= float64(sum.Scored)
			sum.F1 /= float64(sum.Scored)
		}
		if answered := sum.Questions - sum.Failures; answered > 0 {
			sum.AvgKept = float64(kept[name]) / float64(answered)
		}
		summaries = append(summaries, *sum)
	}
	return summaries
}
