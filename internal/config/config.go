// Package config provides configuration loading for matchd.
//
// Configuration is loaded from an optional YAML file and overridden by
// environment variables. The resulting struct is constructed once at
// process start and passed by reference into each component constructor;
// no component reads ambient globals.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/optiplanhq/matchd/internal/logging"
)

// Config holds the complete matchd configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     logging.Config    `koanf:"logging"`
	Gemini      GeminiConfig      `koanf:"gemini"`
	VectorStore VectorStoreConfig `koanf:"vectorstore"`
	Qdrant      QdrantConfig      `koanf:"qdrant"`
	Chromem     ChromemConfig     `koanf:"chromem"`
	Matching    MatchingConfig    `koanf:"matching"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// GeminiConfig holds Gemini API configuration for embeddings and
// roadmap generation.
type GeminiConfig struct {
	// APIKey authenticates against the Gemini API. Required unless the
	// vector store provider is "memory" (local development).
	APIKey string `koanf:"api_key"`

	// EmbeddingModel is the embedding model name.
	EmbeddingModel string `koanf:"embedding_model"`

	// GenerationModel is the model used for roadmap generation.
	GenerationModel string `koanf:"generation_model"`

	// Strict fails embedding calls instead of degrading to zero vectors.
	Strict bool `koanf:"strict"`
}

// VectorStoreConfig selects and parameterizes the vector store backend.
type VectorStoreConfig struct {
	// Provider is the backend: "qdrant", "chromem", or "memory".
	Provider string `koanf:"provider"`

	// CollectionPrefix is prepended to namespace names to form
	// collection names, e.g. "matchd_" -> matchd_user_skills.
	CollectionPrefix string `koanf:"collection_prefix"`

	// VectorSize is the embedding dimensionality. Must match the
	// embedding model output (768 for text-embedding-004).
	VectorSize int `koanf:"vector_size"`
}

// QdrantConfig holds Qdrant gRPC client configuration.
type QdrantConfig struct {
	Host string `koanf:"host"`

	// Port is the Qdrant gRPC port (6334), not the HTTP REST port.
	Port   int  `koanf:"port"`
	UseTLS bool `koanf:"use_tls"`

	// MaxRetries bounds retry attempts on transient failures.
	MaxRetries int `koanf:"max_retries"`

	// RetryBackoff is the initial backoff; it doubles per attempt.
	RetryBackoff time.Duration `koanf:"retry_backoff"`
}

// ChromemConfig holds embedded chromem-go store configuration.
type ChromemConfig struct {
	// Path is the directory for persistent storage.
	Path     string `koanf:"path"`
	Compress bool   `koanf:"compress"`
}

// MatchingConfig holds core matcher and indexer tunables.
type MatchingConfig struct {
	// TopK is the default result count for matching calls.
	TopK int `koanf:"top_k"`

	// Overfetch multiplies top_k for each per-facet store query, so the
	// post-aggregation ranking has enough candidates to cut from.
	Overfetch int `koanf:"overfetch"`

	// FacetConcurrency bounds concurrent facet queries per call.
	FacetConcurrency int `koanf:"facet_concurrency"`

	// BatchSize bounds upsert batch sizes during indexing.
	BatchSize int `koanf:"batch_size"`
}

// applyDefaults sets default values for unset fields.
func applyDefaults(c *Config) {
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	c.Logging.ApplyDefaults()
	if c.Gemini.EmbeddingModel == "" {
		c.Gemini.EmbeddingModel = "text-embedding-004"
	}
	if c.Gemini.GenerationModel == "" {
		c.Gemini.GenerationModel = "gemini-2.5-flash"
	}
	if c.VectorStore.Provider == "" {
		c.VectorStore.Provider = "chromem"
	}
	if c.VectorStore.CollectionPrefix == "" {
		c.VectorStore.CollectionPrefix = "matchd_"
	}
	if c.VectorStore.VectorSize == 0 {
		c.VectorStore.VectorSize = 768
	}
	if c.Qdrant.Host == "" {
		c.Qdrant.Host = "localhost"
	}
	if c.Qdrant.Port == 0 {
		c.Qdrant.Port = 6334
	}
	if c.Qdrant.MaxRetries == 0 {
		c.Qdrant.MaxRetries = 3
	}
	if c.Qdrant.RetryBackoff == 0 {
		c.Qdrant.RetryBackoff = time.Second
	}
	if c.Chromem.Path == "" {
		c.Chromem.Path = "~/.local/share/matchd/vectorstore"
	}
	if c.Matching.TopK == 0 {
		c.Matching.TopK = 5
	}
	if c.Matching.Overfetch == 0 {
		c.Matching.Overfetch = 3
	}
	if c.Matching.FacetConcurrency == 0 {
		c.Matching.FacetConcurrency = 4
	}
	if c.Matching.BatchSize == 0 {
		c.Matching.BatchSize = 100
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	switch c.VectorStore.Provider {
	case "qdrant", "chromem", "memory":
	default:
		return fmt.Errorf("unsupported vectorstore provider: %s (supported: qdrant, chromem, memory)", c.VectorStore.Provider)
	}
	if c.VectorStore.VectorSize <= 0 {
		return errors.New("vector size must be positive")
	}
	if c.VectorStore.Provider != "memory" && c.Gemini.APIKey == "" {
		return errors.New("gemini api key required (GEMINI_API_KEY)")
	}
	if c.Qdrant.Port < 1 || c.Qdrant.Port > 65535 {
		return fmt.Errorf("invalid qdrant port: %d", c.Qdrant.Port)
	}
	if c.Matching.TopK < 0 {
		return errors.New("matching top_k cannot be negative")
	}
	if c.Matching.Overfetch < 1 {
		return errors.New("matching overfetch must be at least 1")
	}
	if c.Matching.FacetConcurrency < 1 {
		return errors.New("matching facet_concurrency must be at least 1")
	}
	if c.Matching.BatchSize < 1 {
		return errors.New("matching batch_size must be at least 1")
	}
	return nil
}
