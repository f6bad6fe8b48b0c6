package vectorstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/optiplanhq/matchd/internal/scope"
)

// Tracer for OpenTelemetry instrumentation.
var qdrantTracer = otel.Tracer("matchd.vectorstore.qdrant")

// QdrantConfig holds configuration for the Qdrant gRPC client.
type QdrantConfig struct {
	// Host is the Qdrant server hostname or IP address.
	Host string

	// Port is the Qdrant gRPC port (6334), not the HTTP REST port.
	Port int

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// CollectionPrefix is prepended to namespaces to form collection
	// names, e.g. "matchd_" + "tasks" -> matchd_tasks.
	CollectionPrefix string

	// VectorSize is the embedding dimensionality. Must match the
	// embedding provider's output.
	VectorSize int

	// MaxRetries bounds retry attempts for transient failures.
	MaxRetries int

	// RetryBackoff is the initial backoff; doubles per attempt.
	RetryBackoff time.Duration
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
	}
	if c.VectorSize <= 0 {
		return fmt.Errorf("%w: vector size required", ErrInvalidConfig)
	}
	return nil
}

// IsTransientError checks if an error is transient and worth retrying.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// QdrantStore is a Store implementation using Qdrant's native gRPC
// client. Collections are created lazily, one per namespace, with
// cosine distance.
type QdrantStore struct {
	client *qdrant.Client
	config QdrantConfig

	// collections caches collection existence to avoid repeated checks.
	collections sync.Map
}

// NewQdrantStore creates a QdrantStore and verifies connectivity.
func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	store := &QdrantStore{client: client, config: cfg}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: health check: %v", ErrConnectionFailed, err)
	}

	return store, nil
}

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *QdrantStore) collectionName(namespace string) (string, error) {
	if err := ValidateNamespace(namespace); err != nil {
		return "", err
	}
	name := s.config.CollectionPrefix + namespace
	if !namespacePattern.MatchString(name) {
		return "", fmt.Errorf("%w: collection name %q", ErrInvalidNamespace, name)
	}
	return name, nil
}

// ensureCollection creates the namespace's collection if missing.
func (s *QdrantStore) ensureCollection(ctx context.Context, name string) error {
	if _, ok := s.collections.Load(name); ok {
		return nil
	}

	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", name, err)
	}
	if !exists {
		err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(s.config.VectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("creating collection %s: %w", name, err)
		}
	}
	s.collections.Store(name, true)
	return nil
}

// retryOperation retries an operation with exponential backoff on
// transient errors.
func (s *QdrantStore) retryOperation(ctx context.Context, operationName string, operation func() error) error {
	backoff := s.config.RetryBackoff

	for attempt := 0; ; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		if !IsTransientError(err) {
			return fmt.Errorf("%s failed (permanent): %w", operationName, err)
		}
		if attempt == s.config.MaxRetries {
			return fmt.Errorf("%s failed after %d retries: %w", operationName, s.config.MaxRetries, err)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", operationName, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
}

// Upsert inserts or overwrites documents by ID. Scope metadata is
// injected before storage.
func (s *QdrantStore) Upsert(ctx context.Context, namespace string, docs []Document) error {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Upsert")
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
	if err := s.ensureCollection(ctx, name); err != nil {
		span.RecordError(err)
		return err
	}

	points := make([]*qdrant.PointStruct, len(docs))
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

		payload := buildPayload(doc.ID, doc.Content, meta)
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(doc.ID),
			Vectors: qdrant.NewVectors(doc.Vector...),
			Payload: payload,
		}
	}

	err = s.retryOperation(ctx, "upsert", func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: name,
			Points:         points,
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upserting to %s: %w", name, err)
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

// Query returns the topK most similar scoped documents.
func (s *QdrantStore) Query(ctx context.Context, namespace string, vector []float32, topK int, filter map[string]interface{}) ([]QueryResult, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Query")
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
	if err := s.ensureCollection(ctx, name); err != nil {
		span.RecordError(err)
		return nil, err
	}

	var points []*qdrant.ScoredPoint
	err = s.retryOperation(ctx, "query", func() error {
		res, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: name,
			Query:          qdrant.NewQuery(vector...),
			Limit:          qdrant.PtrOf(uint64(topK)),
			WithPayload:    qdrant.NewWithPayload(true),
			Filter:         buildFilter(merged),
		})
		if err != nil {
			return err
		}
		points = res
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying %s: %w", name, err)
	}

	results := make([]QueryResult, len(points))
	for i, point := range points {
		results[i] = QueryResult{
			Score:    clampScore(point.Score),
			Metadata: payloadToMetadata(point.Payload),
		}
		if id, ok := results[i].Metadata["id"].(string); ok {
			results[i].ID = id
		}
	}

	span.SetAttributes(attribute.Int("results", len(results)))
	span.SetStatus(codes.Ok, "success")
	return results, nil
}

// Delete removes documents by ID within the caller's scope.
func (s *QdrantStore) Delete(ctx context.Context, namespace string, ids []string) error {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Delete")
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

	// ID plus scope filter, so an ID from another project is untouchable.
	filter := buildFilter(sc.Filter())
	filter.Must = append(filter.Must, qdrant.NewMatchKeywords("id", ids...))

	err = s.retryOperation(ctx, "delete", func() error {
		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: name,
			Points:         qdrant.NewPointsSelectorFilter(filter),
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("deleting from %s: %w", name, err)
	}
	span.SetStatus(codes.Ok, "success")
	return nil
}

// DeleteByFilter removes all scoped documents matching the filter.
func (s *QdrantStore) DeleteByFilter(ctx context.Context, namespace string, filter map[string]interface{}) error {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.DeleteByFilter")
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

	err = s.retryOperation(ctx, "delete_by_filter", func() error {
		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: name,
			Points:         qdrant.NewPointsSelectorFilter(buildFilter(merged)),
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("deleting from %s: %w", name, err)
	}
	span.SetStatus(codes.Ok, "success")
	return nil
}

// buildFilter converts a metadata filter map to a Qdrant filter.
// String-slice values become keyword-set matches (allow-lists).
func buildFilter(filter map[string]interface{}) *qdrant.Filter {
	if len(filter) == 0 {
		return nil
	}
	conditions := make([]*qdrant.Condition, 0, len(filter))
	for key, value := range filter {
		switch v := value.(type) {
		case string:
			conditions = append(conditions, qdrant.NewMatch(key, v))
		case []string:
			conditions = append(conditions, qdrant.NewMatchKeywords(key, v...))
		default:
			conditions = append(conditions, qdrant.NewMatch(key, fmt.Sprint(v)))
		}
	}
	return &qdrant.Filter{Must: conditions}
}

// buildPayload converts content plus metadata into a Qdrant payload.
// The document ID is kept in the payload because Qdrant point IDs are
// returned in UUID form, and callers filter and delete by the "id" key.
func buildPayload(id, content string, meta map[string]interface{}) map[string]*qdrant.Value {
	payload := make(map[string]*qdrant.Value, len(meta)+2)
	payload["id"] = qdrant.NewValueString(id)
	if content != "" {
		payload["content"] = qdrant.NewValueString(content)
	}
	for k, v := range meta {
		switch val := v.(type) {
		case string:
			payload[k] = qdrant.NewValueString(val)
		case int:
			payload[k] = qdrant.NewValueInt(int64(val))
		case int64:
			payload[k] = qdrant.NewValueInt(val)
		case float64:
			payload[k] = qdrant.NewValueDouble(val)
		case float32:
			payload[k] = qdrant.NewValueDouble(float64(val))
		case bool:
			payload[k] = qdrant.NewValueBool(val)
		case []string:
			values := make([]*qdrant.Value, len(val))
			for i, s := range val {
				values[i] = qdrant.NewValueString(s)
			}
			payload[k] = qdrant.NewValueList(&qdrant.ListValue{Values: values})
		}
	}
	return payload
}

// payloadToMetadata converts a Qdrant payload back into a metadata map.
func payloadToMetadata(payload map[string]*qdrant.Value) map[string]interface{} {
	meta := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		switch val := v.Kind.(type) {
		case *qdrant.Value_StringValue:
			meta[k] = val.StringValue
		case *qdrant.Value_IntegerValue:
			meta[k] = val.IntegerValue
		case *qdrant.Value_DoubleValue:
			meta[k] = val.DoubleValue
		case *qdrant.Value_BoolValue:
			meta[k] = val.BoolValue
		case *qdrant.Value_ListValue:
			items := make([]string, 0, len(val.ListValue.Values))
			for _, item := range val.ListValue.Values {
				if s, ok := item.Kind.(*qdrant.Value_StringValue); ok {
					items = append(items, s.StringValue)
				}
			}
			meta[k] = items
		}
	}
	return meta
}

var _ Store = (*QdrantStore)(nil)
