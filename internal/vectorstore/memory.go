package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/optiplanhq/matchd/internal/scope"
)

// MemoryStore is an in-memory Store with exact cosine similarity.
//
// It exists for tests and local development: the matcher's weighted
// aggregation, tie-breaks, and coverage must be verifiable independent of
// any real ANN index's approximate behavior.
type MemoryStore struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]Document

	queryCalls int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		namespaces: make(map[string]map[string]Document),
	}
}

// Upsert inserts or overwrites documents by ID.
func (s *MemoryStore) Upsert(ctx context.Context, namespace string, docs []Document) error {
	if err := ValidateNamespace(namespace); err != nil {
		return err
	}
	if len(docs) == 0 {
		return ErrEmptyDocuments
	}
	sc, err := scope.FromContext(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ns := s.namespaces[namespace]
	if ns == nil {
		ns = make(map[string]Document)
		s.namespaces[namespace] = ns
	}

	for _, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("document without ID")
		}
		meta := make(map[string]interface{}, len(doc.Metadata)+2)
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		doc.Metadata = scope.InjectMetadata(meta, sc)
		ns[doc.ID] = doc
	}
	return nil
}

// Query returns the topK most similar scoped documents by exact cosine.
func (s *MemoryStore) Query(ctx context.Context, namespace string, vector []float32, topK int, filter map[string]interface{}) ([]QueryResult, error) {
	if err := ValidateNamespace(namespace); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}
	sc, err := scope.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	merged, err := scope.MergeFilter(filter, sc)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.queryCalls++
	s.mu.Unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []QueryResult
	for _, doc := range s.namespaces[namespace] {
		if !matchesFilter(doc.Metadata, merged) {
			continue
		}
		results = append(results, QueryResult{
			ID:       doc.ID,
			Score:    clampScore(cosineSimilarity(vector, doc.Vector)),
			Metadata: copyMetadata(doc.Metadata),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Delete removes documents by ID. Missing IDs are ignored.
func (s *MemoryStore) Delete(ctx context.Context, namespace string, ids []string) error {
	if err := ValidateNamespace(namespace); err != nil {
		return err
	}
	sc, err := scope.FromContext(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ns := s.namespaces[namespace]
	for _, id := range ids {
		doc, ok := ns[id]
		if !ok {
			continue
		}
		// Scoped delete only: an ID from another project is untouchable.
		if !matchesFilter(doc.Metadata, sc.Filter()) {
			continue
		}
		delete(ns, id)
	}
	return nil
}

// DeleteByFilter removes all scoped documents matching the filter.
func (s *MemoryStore) DeleteByFilter(ctx context.Context, namespace string, filter map[string]interface{}) error {
	if err := ValidateNamespace(namespace); err != nil {
		return err
	}
	sc, err := scope.FromContext(ctx)
	if err != nil {
		return err
	}
	merged, err := scope.MergeFilter(filter, sc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ns := s.namespaces[namespace]
	for id, doc := range ns {
		if matchesFilter(doc.Metadata, merged) {
			delete(ns, id)
		}
	}
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// Count returns the number of documents in a namespace, ignoring scope.
// Test helper.
func (s *MemoryStore) Count(namespace string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.namespaces[namespace])
}

// QueryCalls returns the number of Query invocations. Test helper.
func (s *MemoryStore) QueryCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryCalls
}

// matchesFilter reports whether metadata satisfies every filter
// condition. String-slice values match any element; everything else is
// compared by its string form, mirroring payload-filter semantics of the
// hosted backends.
func matchesFilter(meta, filter map[string]interface{}) bool {
	for key, want := range filter {
		got, ok := meta[key]
		if !ok {
			return false
		}
		switch w := want.(type) {
		case []string:
			if !containsString(w, fmt.Sprint(got)) {
				return false
			}
		default:
			if fmt.Sprint(got) != fmt.Sprint(want) {
				return false
			}
		}
	}
	return true
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func copyMetadata(meta map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Zero-norm vectors (the degraded-embedding fallback) yield 0.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

var _ Store = (*MemoryStore)(nil)
