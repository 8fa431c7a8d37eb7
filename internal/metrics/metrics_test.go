package metrics

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

var errMarker = errors.New("marker")

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveStage("baseline", "retrieve", time.Now())
	m.RecordRun("baseline", nil, nil)
	m.RecordFilter("nli", 0, true)
	m.SetChunks(3)
	m.CacheLookup(true)
}

func TestRecordRun_Outcomes(t *testing.T) {
	m := New()

	m.RecordRun("subclaim", nil, errMarker)
	m.RecordRun("subclaim", fmt.Errorf("generate: %w", errMarker), errMarker)
	m.RecordRun("subclaim", errors.New("invalid k"), errMarker)

	for _, outcome := range []string{"success", "provider_error", "error"} {
		if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("subclaim", outcome)); got != 1 {
			t.Errorf("outcome %s: expected 1, got %v", outcome, got)
		}
	}
}

func TestRecordFilter(t *testing.T) {
	m := New()
	m.RecordFilter("nli", 0, true)
	m.RecordFilter("nli", 2, false)

	if got := testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("nli")); got != 1 {
		t.Errorf("Expected 1 fallback, got %v", got)
	}
	if got := testutil.CollectAndCount(m.PassagesKept); got != 1 {
		t.Errorf("Expected one histogram series, got %d", got)
	}
}

func TestHandlerAndTextfile(t *testing.T) {
	m := New()
	m.SetChunks(42)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "entailrag_chunks_indexed 42") {
		t.Errorf("Expected gauge in exposition, got:\n%s", rec.Body.String())
	}

	path := filepath.Join(t.TempDir(), "entailrag.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), "entailrag_chunks_indexed 42") {
		t.Errorf("Expected gauge in textfile, got:\n%s", data)
	}
}
