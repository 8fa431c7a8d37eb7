package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestNewProxyFunc_SchemeSelection(t *testing.T) {
	proxy := NewProxyFunc("http://plain:3128", "http://secure:3128", "localhost,.internal")

	tests := []struct {
		target string
		want   string
	}{
		{"https://api.openai.com/v1", "http://secure:3128"},
		{"http://example.com/", "http://plain:3128"},
		{"http://localhost:11434/api/tags", ""},
		{"https://nli.svc.internal/classify", ""},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			u, _ := url.Parse(tt.target)
			got, err := proxy(&http.Request{URL: u})
			if err != nil {
				t.Fatalf("proxy func failed: %v", err)
			}
			if tt.want == "" {
				if got != nil {
					t.Errorf("Expected no proxy for %s, got %s", tt.target, got)
				}
				return
			}
			if got == nil || got.String() != tt.want {
				t.Errorf("Expected %s, got %v", tt.want, got)
			}
		})
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	if got := NormalizeUserAgent("entailrag/0.1 (+https://github.com/ppiankov/entailrag)"); got != "entailrag" {
		t.Errorf("Expected entailrag, got %s", got)
	}
	if got := NormalizeUserAgent(""); got != "" {
		t.Errorf("Expected empty, got %s", got)
	}
}

func TestRobotsChecker_CanFetch(t *testing.T) {
	var robotsHits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			robotsHits++
			_, _ = fmt.Fprint(w, "User-agent: entailrag\nDisallow: /private\nCrawl-delay: 2\n")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := NewRobotsChecker("entailrag/0.1", server.Client())

	allowed, delay, err := checker.CanFetch(context.Background(), server.URL+"/wiki/Page")
	if err != nil {
		t.Fatalf("CanFetch failed: %v", err)
	}
	if !allowed {
		t.Error("Expected /wiki/Page to be allowed")
	}
	if delay != 2*time.Second {
		t.Errorf("Expected 2s crawl delay, got %v", delay)
	}

	allowed, _, _ = checker.CanFetch(context.Background(), server.URL+"/private/x")
	if allowed {
		t.Error("Expected /private/x to be disallowed")
	}

	if robotsHits != 1 {
		t.Errorf("Expected robots.txt fetched once per host, got %d", robotsHits)
	}
}

func TestRobotsChecker_MissingRobotsAllowsAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	checker := NewRobotsChecker("entailrag/0.1", server.Client())
	allowed, _, err := checker.CanFetch(context.Background(), server.URL+"/anything")
	if err != nil || !allowed {
		t.Errorf("Expected allowed without robots.txt, got %v (%v)", allowed, err)
	}
}
