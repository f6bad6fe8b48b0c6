package embeddings

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDegradedError(t *testing.T) {
	underlying := errors.New("quota exhausted")
	degraded := &DegradedError{Failed: []int{0, 2}, Err: underlying}

	t.Run("wraps underlying error", func(t *testing.T) {
		assert.ErrorIs(t, degraded, underlying)
	})

	t.Run("detectable through wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("indexing users: %w", degraded)
		assert.True(t, IsDegraded(wrapped))
	})

	t.Run("plain errors are not degraded", func(t *testing.T) {
		assert.False(t, IsDegraded(underlying))
		assert.False(t, IsDegraded(nil))
	})
}

func TestZeroVector(t *testing.T) {
	v := ZeroVector(4)
	assert.Len(t, v, 4)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestGeminiConfigValidate(t *testing.T) {
	cfg := GeminiConfig{}
	cfg.ApplyDefaults()
	assert.Equal(t, defaultEmbeddingModel, cfg.Model)
	assert.Equal(t, 768, cfg.Dimension)

	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig, "missing api key")

	cfg.APIKey = "test-key"
	assert.NoError(t, cfg.Validate())

	cfg.Dimension = -1
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}
