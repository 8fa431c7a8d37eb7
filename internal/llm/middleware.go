package llm

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ppiankov/entailrag/internal/cache"
)

// Waiter blocks until a call against key may proceed (see worker.Limiter)
type Waiter interface {
	Wait(ctx context.Context, key string) error
}

// serializedGenerator guards a provider that is not safe for concurrent use
type serializedGenerator struct {
	mu  sync.Mutex
	gen Generator
}

// SerializedGenerator makes every Generate call on g run one at a time
func SerializedGenerator(g Generator) Generator {
	return &serializedGenerator{gen: g}
}

func (s *serializedGenerator) Name() string { return s.gen.Name() }

func (s *serializedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen.Generate(ctx, prompt)
}

type serializedEmbedder struct {
	mu  sync.Mutex
	emb Embedder
}

// SerializedEmbedder makes every Embed call on e run one at a time
func SerializedEmbedder(e Embedder) Embedder {
	return &serializedEmbedder{emb: e}
}

func (s *serializedEmbedder) Name() string { return s.emb.Name() }

func (s *serializedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emb.Embed(ctx, texts)
}

type throttledGenerator struct {
	gen    Generator
	waiter Waiter
}

// ThrottledGenerator waits on w (keyed by provider name) before every call
func ThrottledGenerator(g Generator, w Waiter) Generator {
	return &throttledGenerator{gen: g, waiter: w}
}

func (t *throttledGenerator) Name() string { return t.gen.Name() }

func (t *throttledGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := t.waiter.Wait(ctx, t.gen.Name()); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	return t.gen.Generate(ctx, prompt)
}

type throttledEmbedder struct {
	emb    Embedder
	waiter Waiter
}

// ThrottledEmbedder waits on w (keyed by provider name) before every batch
func ThrottledEmbedder(e Embedder, w Waiter) Embedder {
	return &throttledEmbedder{emb: e, waiter: w}
}

func (t *throttledEmbedder) Name() string { return t.emb.Name() }

func (t *throttledEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := t.waiter.Wait(ctx, t.emb.Name()); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return t.emb.Embed(ctx, texts)
}

// CachedEmbedder memoizes vectors per text; only cache misses reach the provider
type CachedEmbedder struct {
	emb       Embedder
	cache     cache.Cache
	namespace string
	ttl       time.Duration
}

// NewCachedEmbedder wraps e; namespace should identify the model so vectors never mix
func NewCachedEmbedder(e Embedder, c cache.Cache, namespace string, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{emb: e, cache: c, namespace: namespace, ttl: ttl}
}

// Name returns the wrapped provider name
func (c *CachedEmbedder) Name() string { return c.emb.Name() }

// Embed returns cached vectors where present and embeds the rest in one batch
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		if data, ok := c.cache.Get(c.key(text)); ok {
			if v, err := decodeVector(data); err == nil {
				vectors[i] = v
				continue
			}
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return vectors, nil
	}

	fresh, err := c.emb.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missing) {
		return nil, Failed(c.emb.Name(), "embed", fmt.Errorf("got %d embeddings for %d inputs", len(fresh), len(missing)))
	}

	for j, v := range fresh {
		vectors[missingIdx[j]] = v
		// A failed cache write only costs a future re-embed
		_ = c.cache.Set(c.key(missing[j]), encodeVector(v), c.ttl)
	}

	return vectors, nil
}

func (c *CachedEmbedder) key(text string) string {
	return cache.Key("embed", c.namespace, text)
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("corrupt vector: %d bytes", len(data))
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return v, nil
}
