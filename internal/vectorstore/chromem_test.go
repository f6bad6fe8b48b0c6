package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/optiplanhq/matchd/internal/scope"
)

func newTestChromemStore(t *testing.T) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore(ChromemConfig{
		Path:             t.TempDir(),
		CollectionPrefix: "matchd_",
		VectorSize:       3,
	}, zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestChromemStore_CollectionCache(t *testing.T) {
	store := newTestChromemStore(t)

	name, err := store.collectionName("tasks")
	require.NoError(t, err)

	first, err := store.getOrCreateCollection(name)
	require.NoError(t, err)
	second, err := store.getOrCreateCollection(name)
	require.NoError(t, err)

	assert.Same(t, first, second, "repeat lookups must hit the cache")
}

func TestChromemStore_UpsertValidation(t *testing.T) {
	store := newTestChromemStore(t)
	ctx := scopedCtx(t, "p1", "m1")

	err := store.Upsert(ctx, "tasks", []Document{{ID: "a", Vector: []float32{1, 0}}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	err = store.Upsert(ctx, "tasks", nil)
	assert.ErrorIs(t, err, ErrEmptyDocuments)

	err = store.Upsert(context.Background(), "tasks", []Document{{ID: "a", Vector: []float32{1, 0, 0}}})
	assert.ErrorIs(t, err, scope.ErrMissingScope)
}

func TestChromemStore_RoundTrip(t *testing.T) {
	store := newTestChromemStore(t)
	ctx := scopedCtx(t, "p1", "m1")

	docs := []Document{
		{ID: "t1", Content: "alpha", Vector: []float32{1, 0, 0}, Metadata: map[string]interface{}{"task_id": "t1"}},
		{ID: "t2", Content: "beta", Vector: []float32{0, 1, 0}, Metadata: map[string]interface{}{"task_id": "t2"}},
	}
	require.NoError(t, store.Upsert(ctx, "tasks", docs))

	results, err := store.Query(ctx, "tasks", []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "t1", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-4)
	assert.Equal(t, "t1", results[0].Metadata["task_id"])

	t.Run("other scope sees nothing", func(t *testing.T) {
		other := scopedCtx(t, "p2", "m1")
		results, err := store.Query(other, "tasks", []float32{1, 0, 0}, 2, nil)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("cross-scope delete is a no-op", func(t *testing.T) {
		other := scopedCtx(t, "p2", "m1")
		require.NoError(t, store.Delete(other, "tasks", []string{"t1"}))

		results, err := store.Query(ctx, "tasks", []float32{1, 0, 0}, 2, nil)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("in-scope delete tolerates missing ids", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "tasks", []string{"t2", "missing"}))

		results, err := store.Query(ctx, "tasks", []float32{1, 0, 0}, 2, nil)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "t1", results[0].ID)
	})
}
