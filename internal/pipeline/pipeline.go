// Package pipeline answers questions with retrieval-augmented generation.
// The three variants share one linear stage sequence and differ only in
// which optional stages run:
//
//	baseline: retrieve → compose → generate
//	nli:      retrieve → filter(basic) → compose → generate
//	subclaim: retrieve → decompose → filter(subclaim) → compose → generate
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ppiankov/entailrag/internal/filter"
	"github.com/ppiankov/entailrag/internal/llm"
	"github.com/ppiankov/entailrag/internal/metrics"
	"github.com/ppiankov/entailrag/internal/model"
)

// Variant names accepted by New
const (
	VariantBaseline           = "baseline"
	VariantEntailmentFiltered = "nli"
	VariantSubclaimFiltered   = "subclaim"
)

// Variants lists every variant in comparison order
func Variants() []string {
	return []string{VariantBaseline, VariantEntailmentFiltered, VariantSubclaimFiltered}
}

// DefaultTopK is the number of passages retrieved per question
const DefaultTopK = 2

// Pipeline answers a question, optionally checking evidence against a claim
type Pipeline interface {
	// Name returns the variant name
	Name() string

	// Answer runs the pipeline and returns the generated answer
	Answer(ctx context.Context, question, claim string) (string, error)

	// AnswerWithTrace runs the pipeline and returns every intermediate artifact
	AnswerWithTrace(ctx context.Context, question, claim string) (*model.Trace, error)
}

// Retriever returns the k passages nearest to a query (see index.Index)
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]model.RetrievedPassage, error)
}

// Options holds knobs shared by all variants
type Options struct {
	TopK      int     // Passages retrieved (default 2)
	Threshold float64 // Entailment confidence to exceed, in [0, 1]; 0 lets any entailment pass
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// Deps are the long-lived collaborators a pipeline is built from
type Deps struct {
	Retriever Retriever
	Generator llm.Generator
	Filter    *filter.Filter // Unused by the baseline
}

// New constructs a variant by name
func New(variant string, deps Deps, opts Options) (Pipeline, error) {
	if deps.Retriever == nil || deps.Generator == nil {
		return nil, fmt.Errorf("pipeline %s: retriever and generator are required", variant)
	}
	if err := filter.ValidateThreshold(opts.Threshold); err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", variant, err)
	}

	switch strings.ToLower(variant) {
	case VariantBaseline, "rag":
		return NewBaseline(deps.Retriever, deps.Generator, opts), nil

	case VariantEntailmentFiltered, "rag_nli", "entailment":
		if deps.Filter == nil {
			return nil, fmt.Errorf("pipeline %s: filter is required", variant)
		}
		return NewEntailmentFiltered(deps.Retriever, deps.Generator, deps.Filter, opts), nil

	case VariantSubclaimFiltered, "rag_nli_subclaim":
		if deps.Filter == nil {
			return nil, fmt.Errorf("pipeline %s: filter is required", variant)
		}
		return NewSubclaimFiltered(deps.Retriever, deps.Generator, deps.Filter, opts), nil

	default:
		return nil, fmt.Errorf("unknown pipeline: %q (supported: %s)", variant, strings.Join(Variants(), ", "))
	}
}

// All constructs every variant over the same dependencies, in comparison order
func All(deps Deps, opts Options) ([]Pipeline, error) {
	var out []Pipeline
	for _, v := range Variants() {
		p, err := New(v, deps, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Compose builds the generator prompt: kept passages one per line, then the question
func Compose(question string, passages []string) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	b.WriteString(strings.Join(passages, "\n"))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\nAnswer:")
	return b.String()
}

// Baseline answers from the retrieved passages without any entailment check
type Baseline struct{ runner }

// NewBaseline creates the baseline pipeline
func NewBaseline(r Retriever, g llm.Generator, opts Options) *Baseline {
	return &Baseline{newRunner(VariantBaseline, r, g, nil, nil, opts)}
}

// EntailmentFiltered keeps passages that entail the whole claim
type EntailmentFiltered struct{ runner }

// NewEntailmentFiltered creates the basic-filter pipeline
func NewEntailmentFiltered(r Retriever, g llm.Generator, f *filter.Filter, opts Options) *EntailmentFiltered {
	mode := filter.ModeBasic
	return &EntailmentFiltered{newRunner(VariantEntailmentFiltered, r, g, f, &mode, opts)}
}

// SubclaimFiltered decomposes compound claims and keeps passages entailing any sub-claim
type SubclaimFiltered struct{ runner }

// NewSubclaimFiltered creates the sub-claim filter pipeline
func NewSubclaimFiltered(r Retriever, g llm.Generator, f *filter.Filter, opts Options) *SubclaimFiltered {
	mode := filter.ModeSubclaim
	return &SubclaimFiltered{newRunner(VariantSubclaimFiltered, r, g, f, &mode, opts)}
}
