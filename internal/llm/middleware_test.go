package llm

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/entailrag/internal/cache"
)

type countingEmbedder struct {
	calls  atomic.Int32
	inputs [][]string
	mu     sync.Mutex
	err    error
}

func (e *countingEmbedder) Name() string { return "counting" }

func (e *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	e.mu.Lock()
	e.inputs = append(e.inputs, append([]string(nil), texts...))
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 0.5}
	}
	return out, nil
}

func TestCachedEmbedder_OnlyMissesReachProvider(t *testing.T) {
	inner := &countingEmbedder{}
	c := NewCachedEmbedder(inner, cache.NewMemoryCache(time.Minute, time.Minute), "test-model", 0)

	first, err := c.Embed(context.Background(), []string{"a", "bb"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	second, err := c.Embed(context.Background(), []string{"bb", "ccc", "a"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if inner.calls.Load() != 2 {
		t.Fatalf("Expected 2 provider calls, got %d", inner.calls.Load())
	}
	if got := inner.inputs[1]; len(got) != 1 || got[0] != "ccc" {
		t.Errorf("Expected only the miss to be embedded, got %v", got)
	}
	if second[0][0] != first[1][0] || second[2][0] != first[0][0] || second[1][0] != 3 {
		t.Errorf("Cached vectors out of order: %v", second)
	}
}

func TestCachedEmbedder_PropagatesProviderError(t *testing.T) {
	inner := &countingEmbedder{err: Failed("counting", "embed", errors.New("boom"))}
	c := NewCachedEmbedder(inner, cache.NewMemoryCache(time.Minute, time.Minute), "m", 0)

	if _, err := c.Embed(context.Background(), []string{"x"}); !errors.Is(err, ErrProvider) {
		t.Errorf("Expected ErrProvider, got %v", err)
	}
}

func TestVectorCodec_RoundTrip(t *testing.T) {
	in := []float32{0, -1.5, 3.25, 1e-7}
	out, err := decodeVector(encodeVector(in))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("index %d: want %v, got %v", i, in[i], out[i])
		}
	}

	if _, err := decodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("Expected error for truncated vector")
	}
}

type overlapGenerator struct {
	active atomic.Int32
	max    atomic.Int32
}

func (g *overlapGenerator) Name() string { return "overlap" }

func (g *overlapGenerator) Generate(_ context.Context, _ string) (string, error) {
	n := g.active.Add(1)
	for {
		m := g.max.Load()
		if n <= m || g.max.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)
	g.active.Add(-1)
	return "ok", nil
}

func TestSerializedGenerator_NoOverlap(t *testing.T) {
	inner := &overlapGenerator{}
	gen := SerializedGenerator(inner)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = gen.Generate(context.Background(), "p")
		}()
	}
	wg.Wait()

	if inner.max.Load() != 1 {
		t.Errorf("Expected at most 1 concurrent call, saw %d", inner.max.Load())
	}
}

type recordingWaiter struct {
	keys []string
	err  error
}

func (w *recordingWaiter) Wait(_ context.Context, key string) error {
	w.keys = append(w.keys, key)
	return w.err
}

func TestThrottledGenerator_WaitsByProviderName(t *testing.T) {
	w := &recordingWaiter{}
	gen := ThrottledGenerator(&overlapGenerator{}, w)

	if _, err := gen.Generate(context.Background(), "p"); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(w.keys) != 1 || w.keys[0] != "overlap" {
		t.Errorf("Expected wait keyed by provider name, got %v", w.keys)
	}

	w.err = context.Canceled
	if _, err := gen.Generate(context.Background(), "p"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected wait error to propagate, got %v", err)
	}
}

func TestThrottledEmbedder_WaitsByProviderName(t *testing.T) {
	w := &recordingWaiter{}
	emb := ThrottledEmbedder(&countingEmbedder{}, w)

	if _, err := emb.Embed(context.Background(), []string{"x"}); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(w.keys) != 1 || w.keys[0] != "counting" {
		t.Errorf("Expected wait keyed by provider name, got %v", w.keys)
	}
}
