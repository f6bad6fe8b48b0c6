package vectorstore

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/optiplanhq/matchd/internal/config"
)

// NewStore creates a Store from configuration. Supported providers are
// "chromem" (embedded, default), "qdrant" (hosted), and "memory"
// (tests and local experiments; no persistence).
func NewStore(cfg *config.Config, logger *zap.Logger) (Store, error) {
	switch cfg.VectorStore.Provider {
	case "chromem":
		return NewChromemStore(ChromemConfig{
			Path:             cfg.Chromem.Path,
			Compress:         cfg.Chromem.Compress,
			CollectionPrefix: cfg.VectorStore.CollectionPrefix,
			VectorSize:       cfg.VectorStore.VectorSize,
		}, logger)
	case "qdrant":
		return NewQdrantStore(QdrantConfig{
			Host:             cfg.Qdrant.Host,
			Port:             cfg.Qdrant.Port,
			UseTLS:           cfg.Qdrant.UseTLS,
			CollectionPrefix: cfg.VectorStore.CollectionPrefix,
			VectorSize:       cfg.VectorStore.VectorSize,
			MaxRetries:       cfg.Qdrant.MaxRetries,
			RetryBackoff:     cfg.Qdrant.RetryBackoff,
		})
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.VectorStore.Provider)
	}
}
