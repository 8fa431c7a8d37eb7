package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/entailrag/internal/cache"
	"github.com/ppiankov/entailrag/internal/corpus"
	"github.com/ppiankov/entailrag/internal/filter"
	"github.com/ppiankov/entailrag/internal/index"
	"github.com/ppiankov/entailrag/internal/llm"
	"github.com/ppiankov/entailrag/internal/metrics"
	"github.com/ppiankov/entailrag/internal/model"
	"github.com/ppiankov/entailrag/internal/nli"
	"github.com/ppiankov/entailrag/internal/pipeline"
	"github.com/ppiankov/entailrag/internal/worker"
)

// app holds the long-lived components every command is built from
type app struct {
	cfg       *model.Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
	limiter   *worker.Limiter
	cache     cache.Cache // nil when caching is disabled
	loader    corpus.Loader
	embedder  llm.Embedder
	index     *index.Live
	generator llm.Generator
	filter    *filter.Filter
}

// compose loads the corpus, builds the index and wires providers, in that order
func compose(ctx context.Context, cfg *model.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
		limiter: worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize),
	}

	if cfg.Cache.Enabled {
		a.cache = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	}

	var err error
	a.loader, err = corpus.NewLoader(cfg.Corpus, cfg.HTTP)
	if err != nil {
		return nil, err
	}
	if urls, ok := a.loader.(*corpus.URLLoader); ok {
		urls.Fetcher.SetLimiter(a.limiter)
	}
	a.embedder, err = a.newEmbedder()
	if err != nil {
		return nil, err
	}

	idx, err := a.buildIndex(ctx)
	if err != nil {
		return nil, err
	}
	a.index = index.NewLive(idx)

	// Generator and classifier
	a.generator, err = a.newGenerator()
	if err != nil {
		return nil, err
	}

	opts := []nli.Option{nli.WithMetrics(a.metrics)}
	if a.cache != nil {
		opts = append(opts, nli.WithCache(a.cache, cfg.Cache.DiskTTL))
	}
	classifier, err := nli.New(cfg.NLI, a.generator, cfg.HTTP, opts...)
	if err != nil {
		return nil, fmt.Errorf("create classifier: %w", err)
	}
	a.filter = filter.New(classifier, logger)

	return a, nil
}

// buildIndex loads the corpus into a fresh store and embeds it
func (a *app) buildIndex(ctx context.Context) (*index.Index, error) {
	fmt.Fprintf(os.Stderr, "⚙️  Loading corpus from %s...\n", a.cfg.Corpus.Path)
	store, err := corpus.Load(ctx, a.loader)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(os.Stderr, "✓ Loaded %d chunks\n", store.Len())

	start := time.Now()
	idx, err := index.Build(ctx, store.Chunks(), a.embedder, index.Options{
		BatchSize: a.cfg.Pipeline.BatchSize,
		Workers:   a.cfg.Concurrency.EmbedWorkers,
		Logger:    a.logger,
		Metrics:   a.metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Indexed %d chunks (dim %d) in %v\n", idx.Len(), idx.Dim(), time.Since(start).Round(time.Millisecond))

	return idx, nil
}

// rebuildIndex swaps in a new index built from the current corpus contents
// On failure the previous index keeps serving
func (a *app) rebuildIndex(ctx context.Context) error {
	idx, err := a.buildIndex(ctx)
	if err != nil {
		return err
	}
	a.index.Swap(idx)
	return nil
}

func (a *app) newEmbedder() (llm.Embedder, error) {
	llmCfg := llm.ConfigFromModel(a.cfg.Embedder, a.cfg.HTTP)
	e, err := llm.NewEmbedder(llmCfg)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	e = llm.ThrottledEmbedder(e, a.limiter)
	if a.cache != nil {
		e = llm.NewCachedEmbedder(e, a.cache, llmCfg.Provider+"/"+llmCfg.Model, a.cfg.Cache.DiskTTL)
	}
	return e, nil
}

func (a *app) newGenerator() (llm.Generator, error) {
	llmCfg := llm.ConfigFromModel(a.cfg.Generator, a.cfg.HTTP)
	g, err := llm.NewGenerator(llmCfg)
	if err != nil {
		return nil, fmt.Errorf("create generator: %w", err)
	}

	// A local Ollama server runs one model at a time
	if strings.EqualFold(llmCfg.Provider, "ollama") {
		g = llm.SerializedGenerator(g)
	}
	return llm.ThrottledGenerator(g, a.limiter), nil
}

func (a *app) deps() pipeline.Deps {
	return pipeline.Deps{
		Retriever: a.index,
		Generator: a.generator,
		Filter:    a.filter,
	}
}

func (a *app) options() pipeline.Options {
	return pipeline.Options{
		TopK:      a.cfg.Pipeline.TopK,
		Threshold: a.cfg.NLI.Threshold,
		Logger:    a.logger,
		Metrics:   a.metrics,
	}
}

// pipelines builds the named variant, or every variant for "all"
func (a *app) pipelines(variant string) ([]pipeline.Pipeline, error) {
	if strings.EqualFold(variant, "all") {
		return pipeline.All(a.deps(), a.options())
	}
	p, err := pipeline.New(variant, a.deps(), a.options())
	if err != nil {
		return nil, err
	}
	return []pipeline.Pipeline{p}, nil
}
