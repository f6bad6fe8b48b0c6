package matching

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/optiplanhq/matchd/internal/embeddings"
	"github.com/optiplanhq/matchd/internal/vectorstore"
)

// IndexerConfig holds indexer tunables.
type IndexerConfig struct {
	// BatchSize bounds documents per embed+upsert round trip.
	BatchSize int
}

// Indexer writes user skills and tasks into their vector namespaces.
//
// Indexing is a full supersede: stable IDs make every re-index overwrite
// the previous vectors for the same entities, no diffing involved. One
// malformed record never fails a batch; it is skipped and counted.
type Indexer struct {
	store    vectorstore.Store
	embedder embeddings.Provider
	config   IndexerConfig
	logger   *zap.Logger
}

// NewIndexer creates an Indexer.
func NewIndexer(store vectorstore.Store, embedder embeddings.Provider, cfg IndexerConfig, logger *zap.Logger) *Indexer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{store: store, embedder: embedder, config: cfg, logger: logger}
}

// IndexUsers indexes every well-formed skill of every user, one vector
// per (user, skill). Scope comes from ctx.
func (ix *Indexer) IndexUsers(ctx context.Context, users []User) (Report, error) {
	var report Report
	var docs []vectorstore.Document

	for _, user := range users {
		if user.ID == "" {
			ix.logger.Warn("skipping user without id", zap.String("user_name", user.Name))
			report.Skipped++
			continue
		}
		userDocs, skipped := UserSkillDocuments(user, ix.logger)
		report.Skipped += skipped
		docs = append(docs, userDocs...)
	}

	if err := ix.indexDocuments(ctx, NamespaceUserSkills, docs, &report); err != nil {
		return report, fmt.Errorf("indexing users: %w", err)
	}

	ix.logger.Info("indexed users",
		zap.Int("users", len(users)),
		zap.Int("indexed", report.Indexed),
		zap.Int("skipped", report.Skipped),
		zap.Int("degraded", report.Degraded),
	)
	return report, nil
}

// IndexTasks indexes one whole-task vector per task.
func (ix *Indexer) IndexTasks(ctx context.Context, tasks []Task) (Report, error) {
	var report Report
	var docs []vectorstore.Document

	for _, task := range tasks {
		doc, ok := TaskDocument(task, ix.logger)
		if !ok {
			report.Skipped++
			continue
		}
		docs = append(docs, doc)
	}

	if err := ix.indexDocuments(ctx, NamespaceTasks, docs, &report); err != nil {
		return report, fmt.Errorf("indexing tasks: %w", err)
	}

	ix.logger.Info("indexed tasks",
		zap.Int("tasks", len(tasks)),
		zap.Int("indexed", report.Indexed),
		zap.Int("skipped", report.Skipped),
		zap.Int("degraded", report.Degraded),
	)
	return report, nil
}

// indexDocuments embeds and upserts docs in batches. Degraded embeddings
// (zero-vector fallback) are stored and counted; the documents stay
// findable by filter and get real vectors on the next re-index.
func (ix *Indexer) indexDocuments(ctx context.Context, namespace string, docs []vectorstore.Document, report *Report) error {
	for start := 0; start < len(docs); start += ix.config.BatchSize {
		end := start + ix.config.BatchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		texts := make([]string, len(batch))
		for i, doc := range batch {
			texts[i] = doc.Content
		}

		vectors, err := ix.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			var degraded *embeddings.DegradedError
			if !errors.As(err, &degraded) {
				return fmt.Errorf("embedding batch: %w", err)
			}
			report.Degraded += len(degraded.Failed)
			degradedDocuments.WithLabelValues(namespace).Add(float64(len(degraded.Failed)))
		}

		for i := range batch {
			batch[i].Vector = vectors[i]
		}
		if err := ix.store.Upsert(ctx, namespace, batch); err != nil {
			return fmt.Errorf("upserting batch: %w", err)
		}
		report.Indexed += len(batch)
		indexedDocuments.WithLabelValues(namespace).Add(float64(len(batch)))
	}
	return nil
}
