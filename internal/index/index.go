// Package index implements exact nearest-neighbour search over unit-normalized
// chunk embeddings. An Index is immutable after Build and safe for concurrent use.
package index

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/ppiankov/entailrag/internal/llm"
	"github.com/ppiankov/entailrag/internal/metrics"
	"github.com/ppiankov/entailrag/internal/model"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrEmptyCorpus is returned when querying an index with no chunks
	ErrEmptyCorpus = errors.New("empty corpus")

	// ErrInvalidK is returned for k <= 0
	ErrInvalidK = errors.New("k must be positive")
)

// Options tunes index construction
type Options struct {
	BatchSize int // Texts per Embed call (default 64)
	Workers   int // Concurrent Embed calls (default 4)
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 64
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// Index holds chunks and their normalized vectors, aligned by chunk id
type Index struct {
	chunks   []model.Chunk
	vectors  [][]float32
	dim      int
	embedder llm.Embedder
}

// Build embeds every chunk exactly once and returns a read-only index
func Build(ctx context.Context, chunks []model.Chunk, embedder llm.Embedder, opts Options) (*Index, error) {
	opts = opts.withDefaults()
	start := time.Now()

	owned := make([]model.Chunk, len(chunks))
	copy(owned, chunks)

	vectors := make([][]float32, len(owned))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for lo := 0; lo < len(owned); lo += opts.BatchSize {
		hi := min(lo+opts.BatchSize, len(owned))
		g.Go(func() error {
			texts := make([]string, hi-lo)
			for i := lo; i < hi; i++ {
				texts[i-lo] = owned[i].Text
			}

			batch, err := embedder.Embed(gctx, texts)
			if err != nil {
				return llm.Failed(embedder.Name(), "embed", err)
			}
			if len(batch) != len(texts) {
				return llm.Failed(embedder.Name(), "embed",
					fmt.Errorf("got %d embeddings for %d chunks", len(batch), len(texts)))
			}

			// Each goroutine writes a disjoint range
			for i, v := range batch {
				vectors[lo+i] = normalize(v)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	dim := 0
	for i, v := range vectors {
		if i == 0 {
			dim = len(v)
			continue
		}
		if len(v) != dim {
			return nil, fmt.Errorf("build index: chunk %d has dimension %d, expected %d", i, len(v), dim)
		}
	}

	opts.Metrics.SetChunks(len(owned))
	opts.Logger.Info("index built",
		"chunks", len(owned),
		"dim", dim,
		"duration", time.Since(start))

	return &Index{
		chunks:   owned,
		vectors:  vectors,
		dim:      dim,
		embedder: embedder,
	}, nil
}

// Len returns the number of indexed chunks
func (idx *Index) Len() int {
	return len(idx.chunks)
}

// Dim returns the embedding dimension (0 for an empty index)
func (idx *Index) Dim() int {
	return idx.dim
}

// Retrieve returns the min(k, Len()) chunks nearest to query, ascending by L2
// distance; equal distances are ordered by chunk id
func (idx *Index) Retrieve(ctx context.Context, query string, k int) ([]model.RetrievedPassage, error) {
	if k <= 0 {
		return nil, fmt.Errorf("retrieve k=%d: %w", k, ErrInvalidK)
	}
	if len(idx.chunks) == 0 {
		return nil, ErrEmptyCorpus
	}

	embedded, err := idx.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, llm.Failed(idx.embedder.Name(), "embed", err)
	}
	if len(embedded) != 1 {
		return nil, llm.Failed(idx.embedder.Name(), "embed",
			fmt.Errorf("got %d embeddings for 1 query", len(embedded)))
	}

	q := normalize(embedded[0])
	if len(q) != idx.dim {
		return nil, llm.Failed(idx.embedder.Name(), "embed",
			fmt.Errorf("query dimension %d, index dimension %d", len(q), idx.dim))
	}

	results := make([]model.RetrievedPassage, len(idx.chunks))
	for i, v := range idx.vectors {
		results[i] = model.RetrievedPassage{Chunk: idx.chunks[i], Distance: l2(q, v)}
	}

	slices.SortFunc(results, func(a, b model.RetrievedPassage) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Chunk.ID, b.Chunk.ID)
	})

	return results[:min(k, len(results))], nil
}

// normalize returns v scaled to unit length; a zero vector stays zero
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func l2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
