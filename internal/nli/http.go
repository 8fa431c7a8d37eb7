package nli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ppiankov/entailrag/internal/model"
	"github.com/ppiankov/entailrag/internal/util"
)

// HTTPClassifier calls a text-classification endpoint serving an MNLI model
// (Hugging Face Inference API or a text-embeddings-inference /predict server)
type HTTPClassifier struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// HTTPConfig configures an HTTPClassifier
type HTTPConfig struct {
	Endpoint   string
	APIKey     string
	Timeout    time.Duration
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

type hfRequest struct {
	Inputs hfPair `json:"inputs"`
}

type hfPair struct {
	Text     string `json:"text"`
	TextPair string `json:"text_pair"`
}

type hfScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// NewHTTPClassifier creates a new HTTP classifier
func NewHTTPClassifier(cfg HTTPConfig) (*HTTPClassifier, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("NLI endpoint is required for the http backend")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &HTTPClassifier{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			},
		},
	}, nil
}

// Name returns the backend name
func (c *HTTPClassifier) Name() string {
	return "http-nli"
}

// Classify posts the pair and returns the highest-scoring label
func (c *HTTPClassifier) Classify(ctx context.Context, premise, hypothesis string) (model.Verdict, error) {
	body, err := json.Marshal(hfRequest{Inputs: hfPair{Text: premise, TextPair: hypothesis}})
	if err != nil {
		return model.Verdict{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return model.Verdict{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.Verdict{}, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Verdict{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return model.Verdict{}, fmt.Errorf("API error (%d): %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	scores, err := decodeScores(respBody)
	if err != nil {
		return model.Verdict{}, err
	}

	return argmax(scores)
}

// decodeScores accepts both [{label,score}...] and [[{label,score}...]]
func decodeScores(data []byte) ([]hfScore, error) {
	var flat []hfScore
	if err := json.Unmarshal(data, &flat); err == nil {
		return flat, nil
	}

	var nested [][]hfScore
	if err := json.Unmarshal(data, &nested); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(nested) == 0 {
		return nil, fmt.Errorf("empty classification response")
	}
	return nested[0], nil
}

func argmax(scores []hfScore) (model.Verdict, error) {
	if len(scores) == 0 {
		return model.Verdict{}, fmt.Errorf("empty classification response")
	}

	best := scores[0]
	for _, s := range scores[1:] {
		if s.Score > best.Score {
			best = s
		}
	}

	label, err := model.ParseLabel(best.Label)
	if err != nil {
		return model.Verdict{}, err
	}
	return model.Verdict{Label: label, Confidence: best.Score}, nil
}
