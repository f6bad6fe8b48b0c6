package matching

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/optiplanhq/matchd/internal/vectorstore"
)

// Deleter removes indexed entities from their namespaces.
//
// Deletion is filter-based, so every vector of an entity goes in one
// operation (a user's skills share a user_id tag). Deleting an ID that
// was never indexed is success; deletion is idempotent.
type Deleter struct {
	store  vectorstore.Store
	logger *zap.Logger
}

// NewDeleter creates a Deleter.
func NewDeleter(store vectorstore.Store, logger *zap.Logger) *Deleter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deleter{store: store, logger: logger}
}

// DeleteUsers removes all indexed skills of the given users.
func (d *Deleter) DeleteUsers(ctx context.Context, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	err := d.store.DeleteByFilter(ctx, NamespaceUserSkills, map[string]interface{}{
		"user_id": userIDs,
	})
	if err != nil {
		return fmt.Errorf("deleting users: %w", err)
	}
	d.logger.Info("deleted user skill indexes", zap.Int("users", len(userIDs)))
	return nil
}

// DeleteTasks removes the given tasks from the index.
func (d *Deleter) DeleteTasks(ctx context.Context, taskIDs []string) error {
	if len(taskIDs) == 0 {
		return nil
	}
	err := d.store.DeleteByFilter(ctx, NamespaceTasks, map[string]interface{}{
		"task_id": taskIDs,
	})
	if err != nil {
		return fmt.Errorf("deleting tasks: %w", err)
	}
	d.logger.Info("deleted task indexes", zap.Int("tasks", len(taskIDs)))
	return nil
}
