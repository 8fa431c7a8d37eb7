// Package nli classifies (premise, hypothesis) pairs as entailment, neutral or
// contradiction. Backends implement Classifier; EntailmentClassifier adds
// validation, error wrapping and verdict memoization on top of any backend.
package nli

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ppiankov/entailrag/internal/cache"
	"github.com/ppiankov/entailrag/internal/llm"
	"github.com/ppiankov/entailrag/internal/metrics"
	"github.com/ppiankov/entailrag/internal/model"
)

// Classifier is an external NLI model
type Classifier interface {
	Classify(ctx context.Context, premise, hypothesis string) (model.Verdict, error)
}

// Named is implemented by classifiers that report a backend name
type Named interface {
	Name() string
}

// EntailmentClassifier wraps a backend with label validation and an optional verdict cache
// Classification is deterministic for a fixed model, so verdicts are safe to memoize
type EntailmentClassifier struct {
	backend Classifier
	name    string
	cache   cache.Cache
	ttl     time.Duration
	metrics *metrics.Metrics
}

// Option configures an EntailmentClassifier
type Option func(*EntailmentClassifier)

// WithCache memoizes verdicts in c for ttl (0 = cache default)
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(e *EntailmentClassifier) {
		e.cache = c
		e.ttl = ttl
	}
}

// WithMetrics counts cache hits and misses
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *EntailmentClassifier) {
		e.metrics = m
	}
}

// NewEntailmentClassifier wraps backend
func NewEntailmentClassifier(backend Classifier, opts ...Option) *EntailmentClassifier {
	name := "nli"
	if n, ok := backend.(Named); ok {
		name = n.Name()
	}
	e := &EntailmentClassifier{backend: backend, name: name}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the backend name
func (e *EntailmentClassifier) Name() string {
	return e.name
}

// Classify returns a validated verdict; backend failures are provider errors
func (e *EntailmentClassifier) Classify(ctx context.Context, premise, hypothesis string) (model.Verdict, error) {
	key := ""
	if e.cache != nil {
		key = cache.Key("nli", e.name, premise, hypothesis)
		if data, ok := e.cache.Get(key); ok {
			var v model.Verdict
			if err := json.Unmarshal(data, &v); err == nil {
				e.metrics.CacheLookup(true)
				return v, nil
			}
		}
		e.metrics.CacheLookup(false)
	}

	v, err := e.backend.Classify(ctx, premise, hypothesis)
	if err != nil {
		return model.Verdict{}, llm.Failed(e.name, "classify", err)
	}

	v, err = validate(v)
	if err != nil {
		return model.Verdict{}, llm.Failed(e.name, "classify", err)
	}

	if e.cache != nil {
		if data, err := json.Marshal(v); err == nil {
			_ = e.cache.Set(key, data, e.ttl)
		}
	}

	return v, nil
}

// validate rejects unknown labels and clamps confidence into [0,1]
func validate(v model.Verdict) (model.Verdict, error) {
	if !v.Label.Valid() {
		return model.Verdict{}, fmt.Errorf("invalid label %d", int(v.Label))
	}
	if math.IsNaN(v.Confidence) {
		return model.Verdict{}, fmt.Errorf("confidence is NaN")
	}
	v.Confidence = math.Max(0, math.Min(1, v.Confidence))
	return v, nil
}

// New creates the configured backend wrapped in an EntailmentClassifier
// The llm backend prompts gen; the http backend calls cfg.Endpoint
func New(cfg model.NLIConfig, gen llm.Generator, httpCfg model.HTTPConfig, opts ...Option) (*EntailmentClassifier, error) {
	var backend Classifier

	switch strings.ToLower(cfg.Backend) {
	case "", "llm":
		if gen == nil {
			return nil, fmt.Errorf("llm NLI backend needs a generator")
		}
		backend = NewLLMClassifier(gen)

	case "http", "hf", "huggingface":
		c, err := NewHTTPClassifier(HTTPConfig{
			Endpoint:   cfg.Endpoint,
			APIKey:     cfg.APIKey,
			Timeout:    time.Duration(cfg.Timeout) * time.Second,
			HTTPProxy:  httpCfg.HTTPProxy,
			HTTPSProxy: httpCfg.HTTPSProxy,
			NoProxy:    httpCfg.NoProxy,
		})
		if err != nil {
			return nil, err
		}
		backend = c

	default:
		return nil, fmt.Errorf("unknown NLI backend: %q (supported: llm, http)", cfg.Backend)
	}

	return NewEntailmentClassifier(backend, opts...), nil
}
