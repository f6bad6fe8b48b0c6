package scope

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	t.Run("missing scope fails closed", func(t *testing.T) {
		_, err := FromContext(context.Background())
		assert.ErrorIs(t, err, ErrMissingScope)
	})

	t.Run("round trip", func(t *testing.T) {
		ctx, err := NewContext(context.Background(), Scope{ProjectID: "p1", ManagerID: "m1"})
		require.NoError(t, err)
		s, err := FromContext(ctx)
		require.NoError(t, err)
		assert.Equal(t, "p1", s.ProjectID)
		assert.Equal(t, "m1", s.ManagerID)
	})

	t.Run("empty fields rejected at entry", func(t *testing.T) {
		_, err := NewContext(context.Background(), Scope{ProjectID: "p1"})
		assert.ErrorIs(t, err, ErrInvalidScope)

		_, err = NewContext(context.Background(), Scope{ManagerID: "m1"})
		assert.ErrorIs(t, err, ErrInvalidScope)
	})
}

func TestMergeFilter(t *testing.T) {
	s := Scope{ProjectID: "p1", ManagerID: "m1"}

	t.Run("nil caller filter returns scope filter", func(t *testing.T) {
		merged, err := MergeFilter(nil, s)
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"project_id": "p1", "manager_id": "m1"}, merged)
	})

	t.Run("caller fields preserved", func(t *testing.T) {
		merged, err := MergeFilter(map[string]interface{}{"user_id": "u1"}, s)
		require.NoError(t, err)
		assert.Equal(t, "u1", merged["user_id"])
		assert.Equal(t, "p1", merged["project_id"])
	})

	t.Run("scope injection rejected", func(t *testing.T) {
		_, err := MergeFilter(map[string]interface{}{"project_id": "other"}, s)
		assert.ErrorIs(t, err, ErrScopeFieldInFilter)
	})
}

func TestInjectMetadata(t *testing.T) {
	s := Scope{ProjectID: "p1", ManagerID: "m1"}

	meta := InjectMetadata(map[string]interface{}{"skill_name": "React", "project_id": "spoofed"}, s)
	assert.Equal(t, "p1", meta["project_id"], "scope must overwrite caller-set fields")
	assert.Equal(t, "m1", meta["manager_id"])
	assert.Equal(t, "React", meta["skill_name"])

	meta = InjectMetadata(nil, s)
	assert.Len(t, meta, 2)
}
