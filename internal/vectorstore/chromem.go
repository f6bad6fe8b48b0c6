package vectorstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/optiplanhq/matchd/internal/scope"
)

// chromemTracer for OpenTelemetry instrumentation.
var chromemTracer = otel.Tracer("matchd.vectorstore.chromem")

// ChromemConfig holds configuration for the chromem-go embedded store.
type ChromemConfig struct {
	// Path is the directory for persistent storage.
	Path string

	// Compress enables gzip compression for stored data.
	Compress bool

	// CollectionPrefix is prepended to namespaces to form collection
	// names, matching the Qdrant store's naming.
	CollectionPrefix string

	// VectorSize is the expected embedding dimension.
	VectorSize int
}

// ApplyDefaults sets default values for unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "~/.local/share/matchd/vectorstore"
	}
}

// Validate validates the configuration.
func (c ChromemConfig) Validate() error {
	if c.VectorSize <= 0 {
		return fmt.Errorf("%w: vector size must be positive", ErrInvalidConfig)
	}
	return nil
}

// ChromemStore is a Store backed by chromem-go, an embeddable pure-Go
// vector database with gob-file persistence. It needs no external
// service, which makes it the default for single-node deployments.
//
// chromem's metadata is string-to-string and its where filter is exact
// equality only, so allow-list filter values ([]string) are applied by
// post-filtering an overfetched result set.
type ChromemStore struct {
	db     *chromem.DB
	config ChromemConfig
	logger *zap.Logger

	collections sync.Map
}

// NewChromemStore creates a ChromemStore with persistent storage.
func NewChromemStore(cfg ChromemConfig, logger *zap.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	expandedPath, err := expandChromemPath(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("expanding path: %w", err)
	}
	if err := os.MkdirAll(expandedPath, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", expandedPath, err)
	}

	db, err := chromem.NewPersistentDB(expandedPath, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	logger.Info("chromem store initialized",
		zap.String("path", expandedPath),
		zap.Bool("compress", cfg.Compress),
		zap.Int("vector_size", cfg.VectorSize),
	)

	return &ChromemStore{db: db, config: cfg, logger: logger}, nil
}

// expandChromemPath expands ~ to the home directory.
func expandChromemPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// noEmbedding rejects any text that reaches chromem without a
// precomputed vector. All embedding happens in the caller.
func noEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("document reached store without a precomputed embedding")
}

func (s *ChromemStore) collectionName(namespace string) (string, error) {
	if err := ValidateNamespace(namespace); err != nil {
		return "", err
	}
	name := s.config.CollectionPrefix + namespace
	if !namespacePattern.MatchString(name) {
		return "", fmt.Errorf("%w: collection name %q", ErrInvalidNamespace, name)
	}
	return name, nil
}

func (s *ChromemStore) getOrCreateCollection(name string) (*chromem.Collection, error) {
	if cached, ok := s.collections.Load(name); ok {
		return cached.(*chromem.Collection), nil
	}
	// Must pass an embedding function: chromem-go falls back to its
	// OpenAI default when nil is passed for persisted collections.
	collection, err := s.db.GetOrCreateCollection(name, nil, noEmbedding)
	if err != nil {
		return nil, fmt.Errorf("getting/creating collection %s: %w", name, err)
	}
	s.collections.Store(name, collection)
	return collection, nil
}

// Upsert inserts or overwrites documents by ID.
func (s *ChromemStore) Upsert(ctx context.Context, namespace string, docs []Document) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Upsert")
	defer span.End()
	span.SetAttributes(
		attribute.String("namespace", namespace),
		attribute.Int("document_count", len(docs)),
	)

	if len(docs) == 0 {
		return ErrEmptyDocuments
	}
	sc, err := scope.FromContext(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}
	name, err := s.collectionName(namespace)
	if err != nil {
		return err
	}
	collection, err := s.getOrCreateCollection(name)
	if err != nil {
		span.RecordError(err)
		return err
	}

	chromemDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("document at index %d has no ID", i)
		}
		if len(doc.Vector) != s.config.VectorSize {
			return fmt.Errorf("%w: document %s has %d dims, want %d", ErrDimensionMismatch, doc.ID, len(doc.Vector), s.config.VectorSize)
		}

		meta := make(map[string]interface{}, len(doc.Metadata)+2)
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		meta = scope.InjectMetadata(meta, sc)

		chromemDocs[i] = chromem.Document{
			ID:        doc.ID,
			Content:   doc.Content,
			Metadata:  flattenMetadata(meta),
			Embedding: doc.Vector,
		}
	}

	// Concurrency of 1: embeddings are precomputed, AddDocuments does no work
	// worth parallelizing.
	if err := collection.AddDocuments(ctx, chromemDocs, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("adding documents to %s: %w", name, err)
	}

	span.SetStatus(codes.Ok, "success")
	s.logger.Debug("upserted documents",
		zap.String("collection", name),
		zap.Int("count", len(docs)),
	)
	return nil
}

// Query returns the topK most similar scoped documents.
func (s *ChromemStore) Query(ctx context.Context, namespace string, vector []float32, topK int, filter map[string]interface{}) ([]QueryResult, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Query")
	defer span.End()
	span.SetAttributes(
		attribute.String("namespace", namespace),
		attribute.Int("top_k", topK),
	)

	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}
	sc, err := scope.FromContext(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	merged, err := scope.MergeFilter(filter, sc)
	if err != nil {
		return nil, err
	}
	name, err := s.collectionName(namespace)
	if err != nil {
		return nil, err
	}

	collection := s.db.GetCollection(name, noEmbedding)
	if collection == nil {
		// A namespace nothing was indexed into matches nothing.
		return nil, nil
	}

	where, listFilters := splitFilter(merged)

	docCount := collection.Count()
	if docCount == 0 {
		return nil, nil
	}

	// Allow-list conditions are applied after the similarity search, so
	// fetch extra candidates to survive the post-filter.
	k := topK
	if len(listFilters) > 0 {
		k = topK * 10
	}
	if k > docCount {
		k = docCount
	}

	results, err := collection.QueryEmbedding(ctx, vector, k, where, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", name, err)
	}

	out := make([]QueryResult, 0, len(results))
	for _, r := range results {
		if !matchesListFilters(r.Metadata, listFilters) {
			continue
		}
		out = append(out, QueryResult{
			ID:       r.ID,
			Score:    clampScore(r.Similarity),
			Metadata: unflattenMetadata(r.Metadata),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > topK {
		out = out[:topK]
	}

	span.SetAttributes(attribute.Int("results", len(out)))
	span.SetStatus(codes.Ok, "success")
	return out, nil
}

// Delete removes documents by ID within the caller's scope.
func (s *ChromemStore) Delete(ctx context.Context, namespace string, ids []string) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Delete")
	defer span.End()
	span.SetAttributes(
		attribute.String("namespace", namespace),
		attribute.Int("id_count", len(ids)),
	)

	if len(ids) == 0 {
		return nil
	}
	sc, err := scope.FromContext(ctx)
	if err != nil {
		return err
	}
	name, err := s.collectionName(namespace)
	if err != nil {
		return err
	}

	collection := s.db.GetCollection(name, noEmbedding)
	if collection == nil {
		return nil
	}

	// Scope check per document, so an ID from another project is
	// untouchable even when the caller knows it.
	scopeMeta := flattenMetadata(sc.Metadata())
	deleted := 0
	for _, id := range ids {
		doc, err := collection.GetByID(ctx, id)
		if err != nil {
			// Missing IDs are not an error.
			continue
		}
		if !matchesWhere(doc.Metadata, scopeMeta) {
			continue
		}
		if err := collection.Delete(ctx, nil, nil, id); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("deleting %s from %s: %w", id, name, err)
		}
		deleted++
	}

	span.SetAttributes(attribute.Int("deleted", deleted))
	span.SetStatus(codes.Ok, "success")
	s.logger.Debug("deleted documents",
		zap.String("collection", name),
		zap.Int("count", deleted),
	)
	return nil
}

// DeleteByFilter removes all scoped documents matching the filter.
// Allow-list values expand into one delete per combination.
func (s *ChromemStore) DeleteByFilter(ctx context.Context, namespace string, filter map[string]interface{}) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.DeleteByFilter")
	defer span.End()
	span.SetAttributes(attribute.String("namespace", namespace))

	sc, err := scope.FromContext(ctx)
	if err != nil {
		return err
	}
	merged, err := scope.MergeFilter(filter, sc)
	if err != nil {
		return err
	}
	name, err := s.collectionName(namespace)
	if err != nil {
		return err
	}

	collection := s.db.GetCollection(name, noEmbedding)
	if collection == nil {
		return nil
	}

	for _, where := range expandListFilters(merged) {
		if err := collection.Delete(ctx, where, nil); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("deleting from %s: %w", name, err)
		}
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

// Close is a no-op: chromem-go persists on write.
func (s *ChromemStore) Close() error {
	s.logger.Info("chromem store closed")
	return nil
}

// splitFilter separates exact-equality conditions (chromem's where
// clause) from allow-list conditions applied by post-filtering.
func splitFilter(filter map[string]interface{}) (map[string]string, map[string][]string) {
	where := make(map[string]string)
	lists := make(map[string][]string)
	for k, v := range filter {
		switch val := v.(type) {
		case []string:
			lists[k] = val
		default:
			where[k] = fmt.Sprint(val)
		}
	}
	if len(where) == 0 {
		where = nil
	}
	return where, lists
}

func matchesWhere(meta, where map[string]string) bool {
	for k, want := range where {
		if meta[k] != want {
			return false
		}
	}
	return true
}

func matchesListFilters(meta map[string]string, lists map[string][]string) bool {
	for key, allowed := range lists {
		got, ok := meta[key]
		if !ok {
			return false
		}
		found := false
		for _, want := range allowed {
			if got == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// expandListFilters expands allow-list values into the cartesian product
// of exact where clauses. Filters here carry at most one small list (a
// batch of entity IDs), so the expansion stays cheap.
func expandListFilters(filter map[string]interface{}) []map[string]string {
	where, lists := splitFilter(filter)
	combos := []map[string]string{cloneStringMap(where)}
	for key, values := range lists {
		next := make([]map[string]string, 0, len(combos)*len(values))
		for _, combo := range combos {
			for _, v := range values {
				expanded := cloneStringMap(combo)
				expanded[key] = v
				next = append(next, expanded)
			}
		}
		combos = next
	}
	return combos
}

func cloneStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// flattenMetadata converts metadata to chromem's string-to-string form.
func flattenMetadata(metadata map[string]interface{}) map[string]string {
	if len(metadata) == 0 {
		return nil
	}
	result := make(map[string]string, len(metadata))
	for k, v := range metadata {
		switch val := v.(type) {
		case string:
			result[k] = val
		case []string:
			// Joined for storage; allow-list filters compare elements via
			// the metadata written per-key by the document builder.
			result[k] = strings.Join(val, ",")
		default:
			result[k] = fmt.Sprint(val)
		}
	}
	return result
}

func unflattenMetadata(metadata map[string]string) map[string]interface{} {
	if metadata == nil {
		return nil
	}
	result := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		result[k] = v
	}
	return result
}

var _ Store = (*ChromemStore)(nil)
