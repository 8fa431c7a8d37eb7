package model

import "time"

// Config is the complete entailrag configuration
// Field names mirror the YAML written by `entailrag config init`
type Config struct {
	Corpus       CorpusConfig       `yaml:"corpus" mapstructure:"corpus"`
	Embedder     LLMConfig          `yaml:"embedder" mapstructure:"embedder"`
	Generator    LLMConfig          `yaml:"generator" mapstructure:"generator"`
	NLI          NLIConfig          `yaml:"nli" mapstructure:"nli"`
	Pipeline     PipelineConfig     `yaml:"pipeline" mapstructure:"pipeline"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
}

// CorpusConfig selects where chunks come from
type CorpusConfig struct {
	Path              string `yaml:"path" mapstructure:"path"`                               // File (or HTML directory) with corpus records
	Format            string `yaml:"format" mapstructure:"format"`                           // "hotpot", "html", "urls"
	MaxRecords        int    `yaml:"max_records" mapstructure:"max_records"`                 // 0 = all
	SentencesPerChunk int    `yaml:"sentences_per_chunk" mapstructure:"sentences_per_chunk"` // HTML/URL sources only
}

// LLMConfig configures an embedding or generation provider
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens,omitempty" mapstructure:"max_tokens"`
}

// NLIConfig configures the entailment classifier
type NLIConfig struct {
	Backend   string  `yaml:"backend" mapstructure:"backend"` // "llm" or "http"
	Endpoint  string  `yaml:"endpoint,omitempty" mapstructure:"endpoint"`
	APIKey    string  `yaml:"-" mapstructure:"api_key"`
	Timeout   int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	Threshold float64 `yaml:"threshold" mapstructure:"threshold"`
}

// PipelineConfig holds the shared retrieval/generation knobs
type PipelineConfig struct {
	TopK      int    `yaml:"top_k" mapstructure:"top_k"`
	Variant   string `yaml:"variant" mapstructure:"variant"` // baseline, nli, subclaim
	BatchSize int    `yaml:"embed_batch_size" mapstructure:"embed_batch_size"`
}

// CacheConfig configures verdict and embedding memoization
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig holds worker counts
type ConcurrencyConfig struct {
	Workers      int `yaml:"workers" mapstructure:"workers"`             // Batch evaluation workers
	EmbedWorkers int `yaml:"embed_workers" mapstructure:"embed_workers"` // Concurrent embedding batches at build
}

// RateLimitingConfig throttles calls to shared providers
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"` // 0 = unlimited
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// HTTPConfig configures the corpus fetcher
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// ServerConfig configures `entailrag serve`
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Format:            "hotpot",
			MaxRecords:        300,
			SentencesPerChunk: 3,
		},
		Embedder: LLMConfig{
			Provider: "openai",
			Model:    "text-embedding-3-small",
			Timeout:  30,
		},
		Generator: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			Timeout:   30,
			MaxTokens: 100,
		},
		NLI: NLIConfig{
			Backend:   "llm",
			Timeout:   30,
			Threshold: 0.60,
		},
		Pipeline: PipelineConfig{
			TopK:      2,
			Variant:   "subclaim",
			BatchSize: 64,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".entailrag-cache",
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers:      4,
			EmbedWorkers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 0,
			BurstSize:         5,
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "entailrag/0.1 (+https://github.com/ppiankov/entailrag)",
			MaxBodyBytes: 2_000_000,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}
