package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppiankov/entailrag/internal/model"
)

// ErrProvider is matched by every failure of an external model provider
var ErrProvider = errors.New("provider failure")

// ProviderError wraps a failed embedding, classification or generation call
type ProviderError struct {
	Provider string // openai, anthropic, ollama, http-nli, ...
	Op       string // embed, generate, classify
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

// Unwrap exposes both the ErrProvider marker and the underlying cause
func (e *ProviderError) Unwrap() []error {
	return []error{ErrProvider, e.Err}
}

// Failed wraps err as a ProviderError unless it already is one
func Failed(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Provider: provider, Op: op, Err: err}
}

// Generator produces an answer for a fully assembled prompt
type Generator interface {
	// Name returns the provider name
	Name() string

	// Generate calls the model once and returns its raw output
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder maps texts to fixed-length vectors, one per input, in input order
type Embedder interface {
	// Name returns the provider name
	Name() string

	// Embed embeds a batch of texts
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Checker is implemented by providers that can probe their backend
type Checker interface {
	IsAvailable(ctx context.Context) bool
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama, OpenAI-compatible servers)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens bounds generated output
	MaxTokens int

	// System prompt for generation
	System string

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultSystemPrompt keeps generated answers short, as the evaluation expects
const DefaultSystemPrompt = "Answer the question using only the given context. Reply with a short answer, not a sentence."

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "openai",
		Timeout:   30,
		MaxTokens: 100,
		System:    DefaultSystemPrompt,
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(modelConfig model.LLMConfig, httpConfig model.HTTPConfig) Config {
	cfg := DefaultConfig()
	cfg.Provider = modelConfig.Provider
	cfg.Model = modelConfig.Model
	cfg.APIKey = modelConfig.APIKey
	cfg.BaseURL = modelConfig.BaseURL
	if modelConfig.Timeout > 0 {
		cfg.Timeout = modelConfig.Timeout
	}
	if modelConfig.MaxTokens > 0 {
		cfg.MaxTokens = modelConfig.MaxTokens
	}
	cfg.HTTPProxy = httpConfig.HTTPProxy
	cfg.HTTPSProxy = httpConfig.HTTPSProxy
	cfg.NoProxy = httpConfig.NoProxy
	return cfg
}
