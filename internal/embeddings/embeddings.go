// Package embeddings provides text embedding generation for matchd.
//
// Embeddings are generated with a task-type hint: documents are embedded
// for retrieval storage, queries for retrieval lookup. The two modes
// produce different output distributions on Gemini models, so callers
// must pick the mode matching their side of the similarity search.
package embeddings

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for embedding operations.
var (
	// ErrInvalidConfig indicates invalid provider configuration.
	ErrInvalidConfig = errors.New("invalid embeddings configuration")

	// ErrEmptyInput indicates an empty text batch.
	ErrEmptyInput = errors.New("empty input texts")
)

// Provider generates vector embeddings from text.
type Provider interface {
	// EmbedDocuments generates embeddings for texts that will be stored,
	// one embedding per input text.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a similarity-search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding dimension for the current model.
	Dimension() int

	// Close releases resources held by the provider.
	Close() error
}

// DegradedError reports that embedding fell back to zero vectors.
//
// A zero vector keeps the output shape fixed but carries no similarity
// signal, so consumers that can tolerate degraded writes (the indexer)
// check for this error and proceed, while consumers that would produce
// misleading rankings from it (the matcher) treat it as fatal.
type DegradedError struct {
	// Failed holds the indexes of inputs that degraded to zero vectors.
	Failed []int

	// Err is the underlying provider error.
	Err error
}

func (e *DegradedError) Error() string {
	return fmt.Sprintf("embedding degraded to zero vectors for %d input(s): %v", len(e.Failed), e.Err)
}

func (e *DegradedError) Unwrap() error {
	return e.Err
}

// IsDegraded reports whether err is (or wraps) a DegradedError.
func IsDegraded(err error) bool {
	var degraded *DegradedError
	return errors.As(err, &degraded)
}

// ZeroVector returns a zero-valued embedding of the given dimension.
func ZeroVector(dim int) []float32 {
	return make([]float32, dim)
}
