package corpus

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ppiankov/entailrag/internal/model"
)

// Loader yields source documents as ordered sentence groups
type Loader interface {
	Load(ctx context.Context) ([]model.Document, error)
}

// NewLoader creates the loader for the configured corpus format
func NewLoader(cfg model.CorpusConfig, httpCfg model.HTTPConfig) (Loader, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("corpus path is required")
	}

	switch strings.ToLower(cfg.Format) {
	case "", "hotpot", "hotpotqa", "json", "jsonl":
		return &HotpotLoader{Path: cfg.Path, MaxRecords: cfg.MaxRecords}, nil

	case "html":
		return &HTMLLoader{Path: cfg.Path, SentencesPerChunk: cfg.SentencesPerChunk}, nil

	case "urls":
		return &URLLoader{
			Path:              cfg.Path,
			Fetcher:           NewFetcher(httpCfg),
			SentencesPerChunk: cfg.SentencesPerChunk,
			MaxRecords:        cfg.MaxRecords,
		}, nil

	default:
		return nil, fmt.Errorf("unknown corpus format: %q (supported: hotpot, html, urls)", cfg.Format)
	}
}

// Load runs l and builds a fresh store from its documents
func Load(ctx context.Context, l Loader) (*Store, error) {
	docs, err := l.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	return Build(docs), nil
}

// newHTTPClient is shared by the fetcher and its robots.txt checker
func newHTTPClient(cfg model.HTTPConfig, transport http.RoundTripper) *http.Client {
	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("stopped after 3 redirects")
			}
			return nil
		},
	}
}
