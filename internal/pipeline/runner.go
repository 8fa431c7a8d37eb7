package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/entailrag/internal/filter"
	"github.com/ppiankov/entailrag/internal/llm"
	"github.com/ppiankov/entailrag/internal/model"
)

// runner executes the shared stage sequence; mode == nil means no filtering
type runner struct {
	name      string
	retriever Retriever
	generator llm.Generator
	filter    *filter.Filter
	mode      *filter.Mode
	opts      Options
}

func newRunner(name string, r Retriever, g llm.Generator, f *filter.Filter, mode *filter.Mode, opts Options) runner {
	return runner{
		name:      name,
		retriever: r,
		generator: g,
		filter:    f,
		mode:      mode,
		opts:      opts.withDefaults(),
	}
}

// Name returns the variant name
func (r *runner) Name() string {
	return r.name
}

// Answer runs the pipeline and returns only the answer
func (r *runner) Answer(ctx context.Context, question, claim string) (string, error) {
	trace, err := r.AnswerWithTrace(ctx, question, claim)
	if err != nil {
		return "", err
	}
	return trace.Answer, nil
}

// AnswerWithTrace runs every stage once, in order; any failure discards all partial results
func (r *runner) AnswerWithTrace(ctx context.Context, question, claim string) (*model.Trace, error) {
	trace, err := r.run(ctx, question, claim)
	r.opts.Metrics.RecordRun(r.name, err, llm.ErrProvider)
	if err != nil {
		r.opts.Logger.Warn("pipeline failed", "pipeline", r.name, "error", err)
		return nil, err
	}
	return trace, nil
}

func (r *runner) run(ctx context.Context, question, claim string) (*model.Trace, error) {
	trace := &model.Trace{
		ID:        uuid.NewString(),
		Pipeline:  r.name,
		Question:  question,
		Claim:     claim,
		Subclaims: []string{},
	}
	log := r.opts.Logger.With("trace", trace.ID, "pipeline", r.name)

	// 1. Retrieve
	start := time.Now()
	passages, err := r.retriever.Retrieve(ctx, question, r.opts.TopK)
	r.opts.Metrics.ObserveStage(r.name, string(StageRetrieve), start)
	if err != nil {
		return nil, r.fail(StageRetrieve, err)
	}
	trace.PassagesBefore = passages
	trace.PassagesAfter = passages
	log.Debug("retrieved", "passages", len(passages))

	if r.mode != nil {
		// 2. Decompose (subclaim mode only; basic mode checks the claim as a whole)
		start = time.Now()
		trace.Subclaims = r.filter.Hypotheses(claim, *r.mode)
		if *r.mode == filter.ModeSubclaim {
			r.opts.Metrics.ObserveStage(r.name, string(StageDecompose), start)
			log.Debug("decomposed", "subclaims", len(trace.Subclaims))
		}

		// 3. Filter
		start = time.Now()
		result, err := r.filter.ApplyHypotheses(ctx, trace.Subclaims, passages, *r.mode, r.opts.Threshold)
		r.opts.Metrics.ObserveStage(r.name, string(StageFilter), start)
		if err != nil {
			return nil, r.fail(StageFilter, err)
		}
		trace.PassagesAfter = result.Kept
		trace.FallbackUsed = result.Fallback
		r.opts.Metrics.RecordFilter(r.name, len(result.Kept), result.Fallback)
		log.Debug("filtered", "kept", len(result.Kept), "fallback", result.Fallback)
	}

	// 4. Compose
	trace.Prompt = Compose(question, model.PassageTexts(trace.PassagesAfter))

	// 5. Generate
	start = time.Now()
	answer, err := r.generator.Generate(ctx, trace.Prompt)
	r.opts.Metrics.ObserveStage(r.name, string(StageGenerate), start)
	if err != nil {
		return nil, r.fail(StageGenerate, llm.Failed(r.generator.Name(), "generate", err))
	}
	trace.Answer = answer

	return trace, nil
}

func (r *runner) fail(stage Stage, err error) error {
	return &Failure{Pipeline: r.name, Stage: stage, Err: err}
}
