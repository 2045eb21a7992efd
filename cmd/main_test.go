package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"morocco-rag/internal/chromemdb"
	"morocco-rag/internal/config"
	"morocco-rag/internal/models"
)

func writeConfig(t *testing.T, dir, indexPath string) string {
	t.Helper()
	p := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(`dataset:
  path: %s
index:
  backend: chromem
  path: %s
  collection: morocco_tourism
  compress: true
  encryption_key: %s
log:
  level: error
  pretty: false
`, filepath.Join(dir, "missing.json"), indexPath, strings.Repeat("k", 32))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	logOutput = &buf
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestExportImport(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "db")
	require.NoError(t, chromemdb.Build(context.Background(), indexPath, "morocco_tourism", true, []models.IndexEntry{
		{ID: "0-0", Content: "Marrakech is red", Embedding: []float32{1, 0}},
		{ID: "1-0", Content: "Chefchaouen is blue", Embedding: []float32{0, 1}},
	}))
	cfgPath := writeConfig(t, dir, indexPath)
	file := filepath.Join(dir, "backup.gob.gz")

	out, err := execute(t, "export", file, "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 2 chunks")

	require.NoError(t, os.RemoveAll(indexPath))
	out, err = execute(t, "import", file, "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported")

	m, err := chromemdb.Open(indexPath, "morocco_tourism", true, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Count())
}

func TestExportMissingIndex(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, filepath.Join(dir, "nope"))
	_, err := execute(t, "export", filepath.Join(dir, "x.gob"), "--config", cfgPath)
	assert.ErrorIs(t, err, models.ErrIndexNotFound)
}

func TestIngestMissingDataset(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "db")
	cfgPath := writeConfig(t, dir, indexPath)
	_, err := execute(t, "ingest", "--config", cfgPath)
	assert.ErrorIs(t, err, models.ErrDatasetFormat)
	_, statErr := os.Stat(indexPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSetupLogger(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)
	var buf bytes.Buffer

	setupLogger(&config.LogConfig{Level: "warn"}, &buf)
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	log.Info().Msg("hidden")
	log.Warn().Str("city", "Fes").Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"city":"Fes"`)

	setupLogger(&config.LogConfig{Level: "verbose"}, &buf)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
