// Package filter keeps the retrieved passages an NLI model judges to entail a
// claim. Whatever the mode, a non-empty input never yields an empty output:
// when nothing passes, the input is returned unchanged.
package filter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ppiankov/entailrag/internal/claim"
	"github.com/ppiankov/entailrag/internal/model"
	"github.com/ppiankov/entailrag/internal/nli"
)

// DefaultThreshold is the confidence an entailment verdict must exceed
const DefaultThreshold = 0.60

// ValidateThreshold rejects thresholds outside [0, 1]
func ValidateThreshold(t float64) error {
	if t < 0 || t > 1 {
		return fmt.Errorf("threshold %.2f out of range [0, 1]", t)
	}
	return nil
}

// Mode selects how the claim is checked against each passage
type Mode int

const (
	// ModeBasic checks each passage against the full claim
	ModeBasic Mode = iota
	// ModeSubclaim checks each passage against every sub-claim of a compound claim
	ModeSubclaim
)

func (m Mode) String() string {
	switch m {
	case ModeBasic:
		return "basic"
	case ModeSubclaim:
		return "subclaim"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses "basic" or "subclaim"; empty selects subclaim
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "basic":
		return ModeBasic, nil
	case "", "subclaim", "sub-claim":
		return ModeSubclaim, nil
	default:
		return ModeBasic, fmt.Errorf("unknown filter mode: %q (supported: basic, subclaim)", s)
	}
}

// Filter applies entailment checks with a shared classifier
type Filter struct {
	classifier nli.Classifier
	decomposer *claim.Decomposer
	logger     *slog.Logger
}

// New creates a filter; logger may be nil
func New(classifier nli.Classifier, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Filter{
		classifier: classifier,
		decomposer: claim.NewDecomposer(),
		logger:     logger,
	}
}

// Result is the outcome of one filter call
type Result struct {
	Kept      []model.RetrievedPassage
	Subclaims []string // Hypotheses the passages were checked against
	Fallback  bool     // Nothing passed and Kept is the input
}

// Hypotheses returns what passages are checked against: the claim itself in
// basic mode, its sub-claims (or the claim, if atomic) in subclaim mode
func (f *Filter) Hypotheses(text string, mode Mode) []string {
	if mode == ModeSubclaim {
		return f.decomposer.Subclaims(text)
	}
	return []string{text}
}

// Apply filters retrieved passages. Subclaim mode keeps each passage text once,
// in first-seen order; basic mode keeps every entailing passage as given
func (f *Filter) Apply(ctx context.Context, text string, passages []model.RetrievedPassage, mode Mode, threshold float64) (Result, error) {
	hypotheses := f.Hypotheses(text, mode)
	return f.ApplyHypotheses(ctx, hypotheses, passages, mode, threshold)
}

// ApplyHypotheses filters passages against already computed hypotheses
func (f *Filter) ApplyHypotheses(ctx context.Context, hypotheses []string, passages []model.RetrievedPassage, mode Mode, threshold float64) (Result, error) {
	kept, fallback, err := apply(ctx, f, hypotheses, passages, mode, threshold,
		func(p model.RetrievedPassage) string { return p.Chunk.Text })
	if err != nil {
		return Result{}, err
	}
	return Result{Kept: kept, Subclaims: hypotheses, Fallback: fallback}, nil
}

// Strings filters plain passage texts
func (f *Filter) Strings(ctx context.Context, text string, passages []string, mode Mode, threshold float64) ([]string, error) {
	kept, _, err := apply(ctx, f, f.Hypotheses(text, mode), passages, mode, threshold,
		func(p string) string { return p })
	return kept, err
}

// apply keeps every passage entailing at least one hypothesis above threshold
// A classifier error aborts the whole call; no partial result is returned
func apply[T any](
	ctx context.Context,
	f *Filter,
	hypotheses []string,
	passages []T,
	mode Mode,
	threshold float64,
	text func(T) string,
) ([]T, bool, error) {
	if len(passages) == 0 {
		return passages, false, nil
	}

	var kept []T
	seen := newOrderedSet[string, T]()
	for i, p := range passages {
		for _, h := range hypotheses {
			v, err := f.classifier.Classify(ctx, text(p), h)
			if err != nil {
				return nil, false, fmt.Errorf("classify passage %d: %w", i, err)
			}
			f.logger.Debug("verdict",
				"passage", i,
				"hypothesis", h,
				"label", v.Label.String(),
				"confidence", v.Confidence)
			if !v.Entails(threshold) {
				continue
			}
			if mode == ModeSubclaim {
				seen.Add(text(p), p)
			} else {
				kept = append(kept, p)
			}
		}
	}
	if mode == ModeSubclaim {
		kept = seen.Values()
	}

	if len(kept) == 0 {
		f.logger.Debug("no passage entailed; keeping all", "passages", len(passages))
		return passages, true, nil
	}
	return kept, false, nil
}
