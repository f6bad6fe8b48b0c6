package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optiplanhq/matchd/internal/scope"
)

func scopedCtx(t *testing.T, projectID, managerID string) context.Context {
	t.Helper()
	ctx, err := scope.NewContext(context.Background(), scope.Scope{
		ProjectID: projectID,
		ManagerID: managerID,
	})
	require.NoError(t, err)
	return ctx
}

func TestMemoryStore_UpsertAndQuery(t *testing.T) {
	store := NewMemoryStore()
	ctx := scopedCtx(t, "p1", "m1")

	docs := []Document{
		{ID: "a", Content: "alpha", Vector: []float32{1, 0, 0}, Metadata: map[string]interface{}{"kind": "x"}},
		{ID: "b", Content: "beta", Vector: []float32{0, 1, 0}, Metadata: map[string]interface{}{"kind": "y"}},
		{ID: "c", Content: "gamma", Vector: []float32{0.9, 0.1, 0}, Metadata: map[string]interface{}{"kind": "x"}},
	}
	require.NoError(t, store.Upsert(ctx, "tasks", docs))

	results, err := store.Query(ctx, "tasks", []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "c", results[1].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestMemoryStore_UpsertIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := scopedCtx(t, "p1", "m1")

	docs := []Document{{ID: "a", Vector: []float32{1, 0}}}
	require.NoError(t, store.Upsert(ctx, "tasks", docs))
	require.NoError(t, store.Upsert(ctx, "tasks", docs))

	assert.Equal(t, 1, store.Count("tasks"))
}

func TestMemoryStore_QueryFilters(t *testing.T) {
	store := NewMemoryStore()
	ctx := scopedCtx(t, "p1", "m1")

	require.NoError(t, store.Upsert(ctx, "user_skills", []Document{
		{ID: "u1s1", Vector: []float32{1, 0}, Metadata: map[string]interface{}{"user_id": "u1"}},
		{ID: "u2s1", Vector: []float32{1, 0}, Metadata: map[string]interface{}{"user_id": "u2"}},
		{ID: "u3s1", Vector: []float32{1, 0}, Metadata: map[string]interface{}{"user_id": "u3"}},
	}))

	t.Run("equality filter", func(t *testing.T) {
		results, err := store.Query(ctx, "user_skills", []float32{1, 0}, 10, map[string]interface{}{"user_id": "u1"})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "u1s1", results[0].ID)
	})

	t.Run("allow-list filter", func(t *testing.T) {
		results, err := store.Query(ctx, "user_skills", []float32{1, 0}, 10, map[string]interface{}{"user_id": []string{"u1", "u3"}})
		require.NoError(t, err)
		require.Len(t, results, 2)
	})

	t.Run("scope fields in caller filter are rejected", func(t *testing.T) {
		_, err := store.Query(ctx, "user_skills", []float32{1, 0}, 10, map[string]interface{}{"project_id": "p2"})
		assert.ErrorIs(t, err, scope.ErrScopeFieldInFilter)
	})
}

func TestMemoryStore_ScopeIsolation(t *testing.T) {
	store := NewMemoryStore()
	ctxP1 := scopedCtx(t, "p1", "m1")
	ctxP2 := scopedCtx(t, "p2", "m1")

	require.NoError(t, store.Upsert(ctxP1, "tasks", []Document{
		{ID: "t1", Vector: []float32{1, 0}},
	}))

	t.Run("other scope sees nothing", func(t *testing.T) {
		results, err := store.Query(ctxP2, "tasks", []float32{1, 0}, 5, nil)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("other scope cannot delete by id", func(t *testing.T) {
		require.NoError(t, store.Delete(ctxP2, "tasks", []string{"t1"}))
		assert.Equal(t, 1, store.Count("tasks"))
	})

	t.Run("missing scope fails closed", func(t *testing.T) {
		_, err := store.Query(context.Background(), "tasks", []float32{1, 0}, 5, nil)
		assert.ErrorIs(t, err, scope.ErrMissingScope)
	})
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := scopedCtx(t, "p1", "m1")

	require.NoError(t, store.Upsert(ctx, "tasks", []Document{
		{ID: "t1", Vector: []float32{1, 0}},
		{ID: "t2", Vector: []float32{0, 1}},
	}))

	require.NoError(t, store.Delete(ctx, "tasks", []string{"t1", "missing"}))
	assert.Equal(t, 1, store.Count("tasks"))

	// Deleting zero ids is a no-op, not an error.
	require.NoError(t, store.Delete(ctx, "tasks", nil))
}

func TestMemoryStore_DeleteByFilter(t *testing.T) {
	store := NewMemoryStore()
	ctx := scopedCtx(t, "p1", "m1")

	require.NoError(t, store.Upsert(ctx, "user_skills", []Document{
		{ID: "u1s1", Vector: []float32{1, 0}, Metadata: map[string]interface{}{"user_id": "u1"}},
		{ID: "u1s2", Vector: []float32{0, 1}, Metadata: map[string]interface{}{"user_id": "u1"}},
		{ID: "u2s1", Vector: []float32{1, 0}, Metadata: map[string]interface{}{"user_id": "u2"}},
	}))

	require.NoError(t, store.DeleteByFilter(ctx, "user_skills", map[string]interface{}{"user_id": []string{"u1"}}))
	assert.Equal(t, 1, store.Count("user_skills"))

	// Matching zero documents is success.
	require.NoError(t, store.DeleteByFilter(ctx, "user_skills", map[string]interface{}{"user_id": "nobody"}))
}

func TestMemoryStore_Validation(t *testing.T) {
	store := NewMemoryStore()
	ctx := scopedCtx(t, "p1", "m1")

	t.Run("invalid namespace", func(t *testing.T) {
		err := store.Upsert(ctx, "Bad-Namespace!", []Document{{ID: "a", Vector: []float32{1}}})
		assert.ErrorIs(t, err, ErrInvalidNamespace)
	})

	t.Run("empty batch", func(t *testing.T) {
		err := store.Upsert(ctx, "tasks", nil)
		assert.ErrorIs(t, err, ErrEmptyDocuments)
	})

	t.Run("non-positive topK", func(t *testing.T) {
		_, err := store.Query(ctx, "tasks", []float32{1}, 0, nil)
		assert.Error(t, err)
	})
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}

func TestValidateNamespace(t *testing.T) {
	assert.NoError(t, ValidateNamespace("user_skills"))
	assert.NoError(t, ValidateNamespace("tasks"))
	assert.Error(t, ValidateNamespace(""))
	assert.Error(t, ValidateNamespace("UPPER"))
	assert.Error(t, ValidateNamespace("has space"))
}

func TestBuildFilterConversions(t *testing.T) {
	t.Run("nil for empty", func(t *testing.T) {
		assert.Nil(t, buildFilter(nil))
	})

	t.Run("string and list conditions", func(t *testing.T) {
		f := buildFilter(map[string]interface{}{
			"project_id": "p1",
			"user_id":    []string{"u1", "u2"},
		})
		require.NotNil(t, f)
		assert.Len(t, f.Must, 2)
	})
}

func TestSplitFilter(t *testing.T) {
	where, lists := splitFilter(map[string]interface{}{
		"project_id": "p1",
		"user_id":    []string{"u1", "u2"},
	})
	assert.Equal(t, map[string]string{"project_id": "p1"}, where)
	assert.Equal(t, map[string][]string{"user_id": {"u1", "u2"}}, lists)
}

func TestExpandListFilters(t *testing.T) {
	combos := expandListFilters(map[string]interface{}{
		"project_id": "p1",
		"user_id":    []string{"u1", "u2"},
	})
	require.Len(t, combos, 2)
	for _, combo := range combos {
		assert.Equal(t, "p1", combo["project_id"])
	}
}
