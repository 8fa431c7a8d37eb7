package corpus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/entailrag/internal/model"
)

func testHTTPConfig() model.HTTPConfig {
	return model.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "entailrag-test", MaxBodyBytes: 1 << 20}
}

// pageServer answers robots.txt with 404 and counts page requests only
func pageServer(t *testing.T, handler func(n int32, w http.ResponseWriter)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		handler(attempts.Add(1), w)
	}))
	t.Cleanup(server.Close)
	return server, &attempts
}

func noSleep(t *testing.T) {
	t.Helper()
	orig := fetchSleepFunc
	fetchSleepFunc = func(d time.Duration) {}
	t.Cleanup(func() { fetchSleepFunc = orig })
}

func TestFetchWithRetry_Success(t *testing.T) {
	server, _ := pageServer(t, func(_ int32, w http.ResponseWriter) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html><body>OK</body></html>")
	})

	result, err := NewFetcher(testHTTPConfig()).FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.HTML != "<html><body>OK</body></html>" {
		t.Errorf("Unexpected HTML: %s", result.HTML)
	}
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	noSleep(t)
	server, attempts := pageServer(t, func(n int32, w http.ResponseWriter) {
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	})

	result, err := NewFetcher(testHTTPConfig()).FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if result.HTML != "<html>OK</html>" {
		t.Errorf("Unexpected HTML: %s", result.HTML)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_PermanentFailure(t *testing.T) {
	noSleep(t)
	server, attempts := pageServer(t, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := NewFetcher(testHTTPConfig()).FetchWithRetry(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 404, got nil")
	}
	if got := err.Error(); got != "unexpected status: 404 404 Not Found" {
		t.Errorf("Unexpected error: %s", got)
	}
	if attempts.Load() != 1 {
		t.Errorf("404 must not be retried, got %d attempts", attempts.Load())
	}
}

func TestFetchWithRetry_AllRetriesExhausted(t *testing.T) {
	noSleep(t)
	server, attempts := pageServer(t, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	if _, err := NewFetcher(testHTTPConfig()).FetchWithRetry(context.Background(), server.URL); err == nil {
		t.Fatal("Expected error after all retries exhausted")
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetch_RobotsDisallow(t *testing.T) {
	var pageHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /\n")
			return
		}
		pageHits.Add(1)
	}))
	defer server.Close()

	_, err := NewFetcher(testHTTPConfig()).Fetch(context.Background(), server.URL+"/page")
	if !errors.Is(err, ErrDisallowed) {
		t.Errorf("Expected ErrDisallowed, got %v", err)
	}
	if pageHits.Load() != 0 {
		t.Error("Disallowed page must not be requested")
	}
}

func TestIsRetryableFetchError(t *testing.T) {
	tests := []struct {
		err       string
		retryable bool
	}{
		{"unexpected status: 503 Service Unavailable", true},
		{"unexpected status: 500 Internal Server Error", true},
		{"unexpected status: 429 Too Many Requests", true},
		{"unexpected status: 404 Not Found", false},
		{"unexpected status: 403 Forbidden", false},
		{"fetch: connection refused", true},
		{"create request: invalid URL", false},
		{"read body: unexpected EOF", false},
	}

	for _, tt := range tests {
		t.Run(tt.err, func(t *testing.T) {
			if got := isRetryableFetchError(fmt.Errorf("%s", tt.err)); got != tt.retryable {
				t.Errorf("isRetryableFetchError(%q) = %v, want %v", tt.err, got, tt.retryable)
			}
		})
	}

	if isRetryableFetchError(nil) {
		t.Error("Expected nil error to not be retryable")
	}
}

func TestURLLoader_SkipsFailedPages(t *testing.T) {
	noSleep(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt", "/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			_, _ = fmt.Fprint(w, "<title>Verdi</title><p>Giuseppe Verdi was an Italian opera composer.</p>")
		}
	}))
	defer server.Close()

	path := writeFile(t, "sources.yaml", fmt.Sprintf("urls:\n  - %s/missing\n  - %s/wiki/Verdi\n", server.URL, server.URL))

	loader := &URLLoader{Path: path, Fetcher: NewFetcher(testHTTPConfig()), SentencesPerChunk: 2}
	docs, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(docs) != 1 || docs[0].Title != "Verdi" {
		t.Errorf("Expected only the Verdi page, got %+v", docs)
	}
}

type recordingLimiter struct {
	urls   []string
	delays []time.Duration
}

func (l *recordingLimiter) WaitURL(_ context.Context, rawURL string, crawlDelay time.Duration) error {
	l.urls = append(l.urls, rawURL)
	l.delays = append(l.delays, crawlDelay)
	return nil
}

func TestFetch_PacedByLimiterWithCrawlDelay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nCrawl-delay: 2\n")
			return
		}
		_, _ = fmt.Fprint(w, "<html><body>OK</body></html>")
	}))
	defer server.Close()

	limiter := &recordingLimiter{}
	f := NewFetcher(testHTTPConfig())
	f.SetLimiter(limiter)

	if _, err := f.Fetch(context.Background(), server.URL+"/page"); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if len(limiter.urls) != 1 || limiter.urls[0] != server.URL+"/page" {
		t.Fatalf("Expected one limiter wait for the page, got %v", limiter.urls)
	}
	if limiter.delays[0] != 2*time.Second {
		t.Errorf("Expected crawl delay 2s, got %v", limiter.delays[0])
	}
}
