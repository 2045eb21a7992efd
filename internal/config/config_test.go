package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 500, cfg.RAG.ChunkSize)
	assert.Equal(t, 50, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 3, cfg.RAG.TopK)
	assert.Equal(t, 512, cfg.Generator.MaxTokens)
	assert.InDelta(t, 0.5, cfg.Generator.Temperature, 1e-9)
	assert.InDelta(t, 0.8, cfg.Generator.TopP, 1e-9)
	assert.InDelta(t, 1.1, cfg.Generator.RepetitionPenalty, 1e-9)
	assert.Zero(t, cfg.Generator.Timeout)
	assert.False(t, cfg.RAG.IncludeSources)
}

func TestLoadConfig(t *testing.T) {
	t.Run("ShouldOverlayFileOnDefaults", func(t *testing.T) {
		path := writeConfig(t, `
index:
  path: /tmp/idx
generator:
  model: mistral
  timeout: 45s
rag:
  include_sources: true
`)
		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "/tmp/idx", cfg.Index.Path)
		assert.Equal(t, "mistral", cfg.Generator.Model)
		assert.Equal(t, 45*time.Second, cfg.Generator.Timeout)
		assert.True(t, cfg.RAG.IncludeSources)
		assert.Equal(t, BackendChromem, cfg.Index.Backend)
		assert.Equal(t, 500, cfg.RAG.ChunkSize)
	})

	t.Run("ShouldExpandEnvironment", func(t *testing.T) {
		t.Setenv("RAG_TEST_KEY", "secret")
		path := writeConfig(t, "generator:\n  key: ${RAG_TEST_KEY}\n")
		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "secret", cfg.Generator.Key)
	})

	t.Run("ShouldRejectOverlapNotSmallerThanSize", func(t *testing.T) {
		path := writeConfig(t, "rag:\n  chunk_size: 50\n  chunk_overlap: 50\n")
		_, err := LoadConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "chunk_overlap")
	})

	t.Run("ShouldRequireDSNForPGVector", func(t *testing.T) {
		path := writeConfig(t, "index:\n  backend: pgvector\n  path: documents\n")
		_, err := LoadConfig(path)
		require.Error(t, err)
	})

	t.Run("ShouldFailOnMissingFile", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
