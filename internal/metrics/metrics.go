// Package metrics exposes Prometheus instrumentation for retrieval, filtering
// and generation stages. A nil *Metrics is valid and records nothing.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "entailrag"

// Metrics holds all collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	// StageDuration measures each pipeline stage.
	// Labels: pipeline, stage (retrieve, decompose, filter, compose, generate)
	StageDuration *prometheus.HistogramVec

	// RunsTotal counts pipeline invocations.
	// Labels: pipeline, outcome (success, provider_error, error)
	RunsTotal *prometheus.CounterVec

	// PassagesKept observes how many passages survive filtering.
	// Labels: pipeline
	PassagesKept *prometheus.HistogramVec

	// FallbacksTotal counts filter calls that kept nothing and returned their input.
	// Labels: pipeline
	FallbacksTotal *prometheus.CounterVec

	// ChunksIndexed is the size of the current index
	ChunksIndexed prometheus.Gauge

	// ClassifierCacheTotal counts verdict cache lookups.
	// Labels: result (hit, miss)
	ClassifierCacheTotal *prometheus.CounterVec
}

// New creates and registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of pipeline stages in seconds",
				Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"pipeline", "stage"},
		),
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_runs_total",
				Help:      "Pipeline invocations by outcome",
			},
			[]string{"pipeline", "outcome"},
		),
		PassagesKept: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "passages_kept",
				Help:      "Passages remaining after entailment filtering",
				Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
			},
			[]string{"pipeline"},
		),
		FallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "filter_fallbacks_total",
				Help:      "Filter calls that kept no passage and fell back to the retrieved set",
			},
			[]string{"pipeline"},
		),
		ChunksIndexed: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "chunks_indexed",
				Help:      "Number of chunks in the vector index",
			},
		),
		ClassifierCacheTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "classifier_cache_total",
				Help:      "Entailment verdict cache lookups",
			},
			[]string{"result"},
		),
	}
}

// Registry returns the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStage records the duration of one stage since start
func (m *Metrics) ObserveStage(pipeline, stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(pipeline, stage).Observe(time.Since(start).Seconds())
}

// RecordRun counts a finished invocation; providerErr marks errors caused by an external model
func (m *Metrics) RecordRun(pipeline string, err error, providerErr error) {
	if m == nil {
		return
	}
	outcome := "success"
	switch {
	case err == nil:
	case providerErr != nil && errors.Is(err, providerErr):
		outcome = "provider_error"
	default:
		outcome = "error"
	}
	m.RunsTotal.WithLabelValues(pipeline, outcome).Inc()
}

// RecordFilter records the filter outcome of one invocation
func (m *Metrics) RecordFilter(pipeline string, kept int, fallback bool) {
	if m == nil {
		return
	}
	m.PassagesKept.WithLabelValues(pipeline).Observe(float64(kept))
	if fallback {
		m.FallbacksTotal.WithLabelValues(pipeline).Inc()
	}
}

// SetChunks records the index size
func (m *Metrics) SetChunks(n int) {
	if m == nil {
		return
	}
	m.ChunksIndexed.Set(float64(n))
}

// CacheLookup counts a verdict cache hit or miss
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.ClassifierCacheTotal.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes all metrics to path for the node_exporter textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
