package corpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/entailrag/internal/model"
	"github.com/ppiankov/entailrag/internal/util"
	"gopkg.in/yaml.v3"
)

// ErrDisallowed is returned when robots.txt forbids fetching a URL
var ErrDisallowed = errors.New("disallowed by robots.txt")

// fetchSleepFunc is swapped out in tests
var fetchSleepFunc = time.Sleep

const fetchAttempts = 3

// URLLimiter paces requests per site (see worker.Limiter)
type URLLimiter interface {
	WaitURL(ctx context.Context, rawURL string, crawlDelay time.Duration) error
}

// Fetcher fetches corpus pages over HTTP, honoring robots.txt
type Fetcher struct {
	httpClient *http.Client
	robots     *util.RobotsChecker
	limiter    URLLimiter
	userAgent  string
	maxBytes   int64
}

// NewFetcher creates a new Fetcher with the given configuration
func NewFetcher(cfg model.HTTPConfig) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 2_000_000
	}

	transport := &http.Transport{
		Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
	}
	client := newHTTPClient(cfg, transport)

	return &Fetcher{
		httpClient: client,
		robots:     util.NewRobotsChecker(cfg.UserAgent, client),
		userAgent:  cfg.UserAgent,
		maxBytes:   cfg.MaxBodyBytes,
	}
}

// SetLimiter paces fetches through l, including robots.txt crawl delays
func (f *Fetcher) SetLimiter(l URLLimiter) {
	f.limiter = l
}

// FetchResult contains the fetched HTML and where it finally came from
type FetchResult struct {
	HTML     string
	FinalURL string
	Status   int
}

// Fetch retrieves HTML content from the given URL once
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	allowed, crawlDelay, err := f.robots.CanFetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
	}

	if f.limiter != nil {
		if err := f.limiter.WaitURL(ctx, rawURL, crawlDelay); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &FetchResult{
		HTML:     string(body),
		FinalURL: resp.Request.URL.String(),
		Status:   resp.StatusCode,
	}, nil
}

// FetchWithRetry retries transient failures (5xx, 429, connection errors) with backoff
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if attempt > 0 {
			fetchSleepFunc(time.Duration(1<<(attempt-1)) * time.Second)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

// isRetryableFetchError reports whether a fetch error is worth another attempt
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()

	if strings.HasPrefix(msg, "unexpected status: ") {
		code := strings.TrimPrefix(msg, "unexpected status: ")
		return strings.HasPrefix(code, "5") || strings.HasPrefix(code, "429")
	}

	return strings.HasPrefix(msg, "fetch: ")
}

// URLLoader fetches every URL listed in a YAML sources file:
//
//	urls:
//	  - https://en.wikipedia.org/wiki/Ed_Wood
type URLLoader struct {
	Path              string
	Fetcher           *Fetcher
	SentencesPerChunk int
	MaxRecords        int
}

type urlSources struct {
	URLs []string `yaml:"urls"`
}

// Load fetches pages in listed order; a page that cannot be fetched is skipped with a warning
func (l *URLLoader) Load(ctx context.Context) ([]model.Document, error) {
	urls, err := readURLSources(l.Path)
	if err != nil {
		return nil, err
	}
	if l.MaxRecords > 0 && len(urls) > l.MaxRecords {
		urls = urls[:l.MaxRecords]
	}

	var docs []model.Document
	for _, u := range urls {
		result, err := l.Fetcher.FetchWithRetry(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			fmt.Fprintf(os.Stderr, "Warning: skipping %s: %v\n", u, err)
			continue
		}

		doc, err := ParseHTML(strings.NewReader(result.HTML), l.SentencesPerChunk)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping %s: parse: %v\n", u, err)
			continue
		}
		if doc.Title == "" {
			doc.Title = result.FinalURL
		}
		docs = append(docs, doc)
	}

	if len(docs) == 0 && len(urls) > 0 {
		return nil, fmt.Errorf("no pages fetched from %d urls", len(urls))
	}
	return docs, nil
}

func readURLSources(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var src urlSources
	if err := yaml.Unmarshal(data, &src); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	urls := make([]string, 0, len(src.URLs))
	for _, u := range src.URLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}
