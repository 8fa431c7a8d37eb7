package nli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ppiankov/entailrag/internal/cache"
	"github.com/ppiankov/entailrag/internal/llm"
	"github.com/ppiankov/entailrag/internal/metrics"
	"github.com/ppiankov/entailrag/internal/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fixedClassifier struct {
	verdict model.Verdict
	err     error
	calls   int
}

func (f *fixedClassifier) Name() string { return "fixed" }

func (f *fixedClassifier) Classify(_ context.Context, _, _ string) (model.Verdict, error) {
	f.calls++
	return f.verdict, f.err
}

func TestEntailmentClassifier_ClampsConfidence(t *testing.T) {
	backend := &fixedClassifier{verdict: model.Verdict{Label: model.LabelEntailment, Confidence: 1.7}}
	c := NewEntailmentClassifier(backend)

	v, err := c.Classify(context.Background(), "p", "h")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if v.Confidence != 1 {
		t.Errorf("Expected confidence clamped to 1, got %v", v.Confidence)
	}

	backend.verdict.Confidence = -0.2
	v, _ = c.Classify(context.Background(), "p", "h")
	if v.Confidence != 0 {
		t.Errorf("Expected confidence clamped to 0, got %v", v.Confidence)
	}
}

func TestEntailmentClassifier_InvalidLabel(t *testing.T) {
	c := NewEntailmentClassifier(&fixedClassifier{verdict: model.Verdict{Label: model.Label(7), Confidence: 0.9}})

	_, err := c.Classify(context.Background(), "p", "h")
	if !errors.Is(err, llm.ErrProvider) {
		t.Errorf("Expected provider failure for invalid label, got %v", err)
	}
}

func TestEntailmentClassifier_BackendErrorIsProviderError(t *testing.T) {
	c := NewEntailmentClassifier(&fixedClassifier{err: errors.New("timeout")})

	_, err := c.Classify(context.Background(), "p", "h")
	var pe *llm.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected ProviderError, got %v", err)
	}
	if pe.Provider != "fixed" || pe.Op != "classify" {
		t.Errorf("Unexpected error fields: %+v", pe)
	}
}

func TestEntailmentClassifier_CachesVerdicts(t *testing.T) {
	backend := &fixedClassifier{verdict: model.Verdict{Label: model.LabelEntailment, Confidence: 0.91}}
	m := metrics.New()
	c := NewEntailmentClassifier(backend,
		WithCache(cache.NewMemoryCache(time.Minute, time.Minute), 0),
		WithMetrics(m))

	for i := 0; i < 3; i++ {
		v, err := c.Classify(context.Background(), "Ed Wood was American.", "Ed Wood has nationality.")
		if err != nil {
			t.Fatalf("Classify failed: %v", err)
		}
		if v.Label != model.LabelEntailment || v.Confidence != 0.91 {
			t.Errorf("Unexpected verdict: %+v", v)
		}
	}

	if backend.calls != 1 {
		t.Errorf("Expected 1 backend call, got %d", backend.calls)
	}
	if got := testutil.ToFloat64(m.ClassifierCacheTotal.WithLabelValues("hit")); got != 2 {
		t.Errorf("Expected 2 cache hits, got %v", got)
	}

	// A different hypothesis is a different key
	if _, err := c.Classify(context.Background(), "Ed Wood was American.", "other"); err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if backend.calls != 2 {
		t.Errorf("Expected a miss for a new pair, got %d calls", backend.calls)
	}
}

func TestEntailmentClassifier_ErrorsAreNotCached(t *testing.T) {
	backend := &fixedClassifier{err: errors.New("flaky")}
	c := NewEntailmentClassifier(backend, WithCache(cache.NewMemoryCache(time.Minute, time.Minute), 0))

	_, _ = c.Classify(context.Background(), "p", "h")
	backend.err = nil
	backend.verdict = model.Verdict{Label: model.LabelNeutral, Confidence: 0.5}

	v, err := c.Classify(context.Background(), "p", "h")
	if err != nil || v.Label != model.LabelNeutral {
		t.Errorf("Expected fresh verdict after failure, got %+v (%v)", v, err)
	}
}

func TestNew_Backends(t *testing.T) {
	if _, err := New(model.NLIConfig{Backend: "llm"}, nil, model.HTTPConfig{}); err == nil {
		t.Error("Expected error: llm backend without generator")
	}
	if _, err := New(model.NLIConfig{Backend: "http"}, nil, model.HTTPConfig{}); err == nil {
		t.Error("Expected error: http backend without endpoint")
	}
	if _, err := New(model.NLIConfig{Backend: "bart"}, nil, model.HTTPConfig{}); err == nil {
		t.Error("Expected error for unknown backend")
	}

	c, err := New(model.NLIConfig{Backend: "http", Endpoint: "http://localhost:9/nli"}, nil, model.HTTPConfig{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if c.Name() != "http-nli" {
		t.Errorf("Expected http-nli, got %s", c.Name())
	}
}
