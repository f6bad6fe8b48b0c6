// Package vectorstore defines the vector storage contract and its
// implementations.
//
// matchd consumes the vector database through a narrow insert/query/delete
// surface. Embedding happens in the caller: documents arrive with their
// vectors precomputed, which lets the matcher control document-vs-query
// embedding modes per call and lets tests substitute exact cosine search
// for an approximate index.
//
// Scope isolation is fail-closed: every operation requires a scope in the
// context (see the scope package). Implementations inject scope metadata
// on upsert and scope filters on query and delete, so two projects never
// cross-match even when their skill text is identical.
package vectorstore

import (
	"context"
	"errors"
	"regexp"
)

// Sentinel errors for vector store operations.
var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid vectorstore configuration")

	// ErrInvalidNamespace indicates a namespace name validation failure.
	ErrInvalidNamespace = errors.New("invalid namespace")

	// ErrEmptyDocuments indicates an empty or nil document batch.
	ErrEmptyDocuments = errors.New("empty or nil documents")

	// ErrConnectionFailed indicates a connection failure to the backend.
	ErrConnectionFailed = errors.New("failed to connect to vector store")

	// ErrDimensionMismatch indicates a vector of the wrong size.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// namespacePattern validates namespace and collection names.
// Lowercase letters, numbers, underscores, 1-64 characters.
var namespacePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// ValidateNamespace validates a namespace name.
func ValidateNamespace(name string) error {
	if !namespacePattern.MatchString(name) {
		return ErrInvalidNamespace
	}
	return nil
}

// Document is a vector with its identity and filterable metadata.
type Document struct {
	// ID is the stable identifier. Upserting the same ID overwrites.
	ID string

	// Content is the embeddable text, stored for later retrieval.
	Content string

	// Vector is the precomputed embedding.
	Vector []float32

	// Metadata holds filterable key-value pairs. Scope fields are
	// injected by the store; callers must not set them.
	Metadata map[string]interface{}
}

// QueryResult is one similarity hit.
type QueryResult struct {
	// ID is the document identifier.
	ID string

	// Score is the cosine similarity, clamped to [0, 1].
	Score float32

	// Metadata holds the stored document metadata.
	Metadata map[string]interface{}
}

// Store is the insert/query/delete contract against a vector database.
//
// Namespaces partition documents by kind (user skills vs tasks); scope
// metadata partitions them organizationally within a namespace. Filters
// are metadata equality conditions; a []string value matches any of its
// elements (allow-list).
type Store interface {
	// Upsert inserts or overwrites documents by ID. Idempotent: the
	// same batch applied twice leaves one document per ID.
	Upsert(ctx context.Context, namespace string, docs []Document) error

	// Query returns up to topK documents most similar to vector,
	// restricted to the caller's scope plus the given filter. An empty
	// result is not an error.
	Query(ctx context.Context, namespace string, vector []float32, topK int, filter map[string]interface{}) ([]QueryResult, error)

	// Delete removes documents by ID. Missing IDs are ignored.
	Delete(ctx context.Context, namespace string, ids []string) error

	// DeleteByFilter removes all scoped documents matching the filter.
	// Matching zero documents is success.
	DeleteByFilter(ctx context.Context, namespace string, filter map[string]interface{}) error

	// Close releases backend resources.
	Close() error
}

// clampScore clamps a similarity score into [0, 1]. Cosine scores can go
// slightly negative for dissimilar vectors; negative similarity carries
// no more meaning than zero for ranking.
func clampScore(s float32) float32 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
