package embeddings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultEmbeddingModel = "text-embedding-004"

	taskTypeDocument = "RETRIEVAL_DOCUMENT"
	taskTypeQuery    = "RETRIEVAL_QUERY"
)

// GeminiConfig holds configuration for the Gemini embedding provider.
type GeminiConfig struct {
	// APIKey authenticates against the Gemini API. Required.
	APIKey string

	// Model is the embedding model name. Default: text-embedding-004.
	Model string

	// Dimension is the model's output dimensionality. Default: 768.
	Dimension int

	// Strict propagates provider errors instead of degrading to zero
	// vectors with a DegradedError.
	Strict bool
}

// ApplyDefaults sets default values for unset fields.
func (c *GeminiConfig) ApplyDefaults() {
	if c.Model == "" {
		c.Model = defaultEmbeddingModel
	}
	if c.Dimension == 0 {
		c.Dimension = 768
	}
}

// Validate validates the configuration.
func (c GeminiConfig) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: api key required", ErrInvalidConfig)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	return nil
}

// GeminiProvider generates embeddings via the Gemini API.
//
// Documents are embedded with the RETRIEVAL_DOCUMENT task type and
// queries with RETRIEVAL_QUERY; mixing them degrades match quality.
type GeminiProvider struct {
	client  *genai.Client
	config  GeminiConfig
	logger  *zap.Logger
	metrics *Metrics
}

// NewGeminiProvider creates a Gemini embedding provider.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiProvider, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &GeminiProvider{
		client:  client,
		config:  cfg,
		logger:  logger,
		metrics: NewMetrics(logger),
	}, nil
}

// EmbedDocuments embeds a batch of texts with the document task type.
//
// In non-strict mode a provider failure degrades the whole batch to zero
// vectors and returns a DegradedError so callers can flag low confidence.
func (p *GeminiProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	start := time.Now()
	vectors, err := p.embed(ctx, texts, taskTypeDocument)
	p.metrics.RecordGeneration(ctx, p.config.Model, "embed_documents", time.Since(start), len(texts), err)

	if err != nil {
		if p.config.Strict {
			return nil, fmt.Errorf("embedding %d documents: %w", len(texts), err)
		}
		p.logger.Warn("embedding degraded to zero vectors",
			zap.Int("count", len(texts)),
			zap.Error(err),
		)
		vectors = make([][]float32, len(texts))
		failed := make([]int, len(texts))
		for i := range vectors {
			vectors[i] = ZeroVector(p.config.Dimension)
			failed[i] = i
		}
		return vectors, &DegradedError{Failed: failed, Err: err}
	}
	return vectors, nil
}

// EmbedQuery embeds a single text with the query task type.
func (p *GeminiProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vectors, err := p.embed(ctx, []string{text}, taskTypeQuery)
	p.metrics.RecordGeneration(ctx, p.config.Model, "embed_query", time.Since(start), 1, err)

	if err != nil {
		if p.config.Strict {
			return nil, fmt.Errorf("embedding query: %w", err)
		}
		p.logger.Warn("query embedding degraded to zero vector", zap.Error(err))
		return ZeroVector(p.config.Dimension), &DegradedError{Failed: []int{0}, Err: err}
	}
	return vectors[0], nil
}

// embed issues a single batched EmbedContent call.
func (p *GeminiProvider) embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	resp, err := p.client.Models.EmbedContent(ctx, p.config.Model, contents, &genai.EmbedContentConfig{
		TaskType: taskType,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", i)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}

// Dimension returns the embedding dimension for the configured model.
func (p *GeminiProvider) Dimension() int {
	return p.config.Dimension
}

// Close is a no-op; the genai client holds no pooled connections that
// need explicit teardown.
func (p *GeminiProvider) Close() error {
	return nil
}

var _ Provider = (*GeminiProvider)(nil)
