package nli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ppiankov/entailrag/internal/model"
)

func TestHTTPClassifier_FlatResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer hf-key" {
			t.Errorf("Expected bearer auth, got %q", r.Header.Get("Authorization"))
		}

		var req hfRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req.Inputs.Text != "premise" || req.Inputs.TextPair != "hypothesis" {
			t.Errorf("Unexpected inputs: %+v", req.Inputs)
		}

		_, _ = w.Write([]byte(`[{"label":"neutral","score":0.2},{"label":"entailment","score":0.7},{"label":"contradiction","score":0.1}]`))
	}))
	defer server.Close()

	c, err := NewHTTPClassifier(HTTPConfig{Endpoint: server.URL, APIKey: "hf-key"})
	if err != nil {
		t.Fatalf("NewHTTPClassifier failed: %v", err)
	}

	v, err := c.Classify(context.Background(), "premise", "hypothesis")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if v.Label != model.LabelEntailment || v.Confidence != 0.7 {
		t.Errorf("Unexpected verdict: %+v", v)
	}
}

func TestHTTPClassifier_NestedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[[{"label":"CONTRADICTION","score":0.88},{"label":"ENTAILMENT","score":0.02}]]`))
	}))
	defer server.Close()

	c, _ := NewHTTPClassifier(HTTPConfig{Endpoint: server.URL})
	v, err := c.Classify(context.Background(), "p", "h")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if v.Label != model.LabelContradiction {
		t.Errorf("Expected contradiction, got %v", v.Label)
	}
}

func TestHTTPClassifier_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"Model is currently loading"}`))
	}))
	defer server.Close()

	c, _ := NewHTTPClassifier(HTTPConfig{Endpoint: server.URL})
	if _, err := c.Classify(context.Background(), "p", "h"); err == nil {
		t.Error("Expected error for 503")
	}
}

func TestArgmax_UnknownLabel(t *testing.T) {
	if _, err := argmax([]hfScore{{Label: "yes", Score: 1}}); err == nil {
		t.Error("Expected error for unknown label")
	}
	if _, err := argmax(nil); err == nil {
		t.Error("Expected error for empty scores")
	}
}
