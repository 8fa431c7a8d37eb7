package llm

import (
	"fmt"
	"strings"
)

// NewGenerator creates a generation provider based on configuration
func NewGenerator(config Config) (Generator, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	default:
		return nil, fmt.Errorf("unknown generator provider: %q (supported: openai, anthropic, ollama)", config.Provider)
	}
}

// NewEmbedder creates an embedding provider based on configuration
func NewEmbedder(config Config) (Embedder, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "anthropic", "claude":
		return nil, fmt.Errorf("anthropic does not serve embeddings (use openai or ollama)")

	default:
		return nil, fmt.Errorf("unknown embedding provider: %q (supported: openai, ollama)", config.Provider)
	}
}
