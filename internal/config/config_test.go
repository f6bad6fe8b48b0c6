package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "chromem", cfg.VectorStore.Provider)
	assert.Equal(t, "matchd_", cfg.VectorStore.CollectionPrefix)
	assert.Equal(t, 768, cfg.VectorStore.VectorSize)
	assert.Equal(t, "text-embedding-004", cfg.Gemini.EmbeddingModel)
	assert.Equal(t, 5, cfg.Matching.TopK)
	assert.Equal(t, 3, cfg.Matching.Overfetch)
	assert.Equal(t, 100, cfg.Matching.BatchSize)
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  port: 9999\nmatching:\n  top_k: 7\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("SERVER_PORT", "7070")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port, "env must override file")
	assert.Equal(t, 7, cfg.Matching.TopK, "file must override defaults")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		cfg.VectorStore.Provider = "memory"
		return cfg
	}

	t.Run("memory provider needs no api key", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("qdrant provider requires api key", func(t *testing.T) {
		cfg := base()
		cfg.VectorStore.Provider = "qdrant"
		cfg.Gemini.APIKey = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown provider rejected", func(t *testing.T) {
		cfg := base()
		cfg.VectorStore.Provider = "pinecone"
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad port rejected", func(t *testing.T) {
		cfg := base()
		cfg.Server.Port = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero overfetch rejected", func(t *testing.T) {
		cfg := base()
		cfg.Matching.Overfetch = 0
		assert.Error(t, cfg.Validate())
	})
}
