package chromemdb

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"morocco-rag/internal/models"
)

const collection = "morocco_tourism"

func entries() []models.IndexEntry {
	return []models.IndexEntry{
		{
			ID:        "0-0",
			Content:   "Marrakech is known for its medina",
			Metadata:  map[string]string{"category": "culture"},
			Embedding: []float32{1, 0, 0},
		},
		{
			ID:        "1-0",
			Content:   "Essaouira is windy",
			Metadata:  map[string]string{"category": "beach"},
			Embedding: []float32{0, 1, 0},
		},
		{
			ID:        "2-0",
			Content:   "Merzouga has dunes",
			Metadata:  map[string]string{"category": "desert"},
			Embedding: []float32{0, 0, 1},
		},
	}
}

func leftovers(t *testing.T, dir string) []string {
	t.Helper()
	items, err := os.ReadDir(dir)
	require.NoError(t, err)
	var out []string
	for _, it := range items {
		if strings.Contains(it.Name(), ".building-") {
			out = append(out, it.Name())
		}
	}
	return out
}

func TestBuildAndOpen(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	path := filepath.Join(root, "vectorstore", "db")

	require.NoError(t, Build(ctx, path, collection, false, entries()))

	m, err := Open(path, collection, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Count())

	t.Run("ShouldReturnNearestFirst", func(t *testing.T) {
		res, err := m.Search(ctx, []float32{0.9, 0.1, 0}, 3)
		require.NoError(t, err)
		require.Len(t, res, 3)
		assert.Equal(t, "0-0", res[0].ID)
		assert.Equal(t, "Marrakech is known for its medina", res[0].Content)
		assert.Equal(t, "culture", res[0].Metadata["category"])
		assert.GreaterOrEqual(t, res[0].Similarity, res[1].Similarity)
	})

	t.Run("ShouldClampK", func(t *testing.T) {
		res, err := m.Search(ctx, []float32{0, 0, 1}, 10)
		require.NoError(t, err)
		assert.Len(t, res, 3)
		assert.Equal(t, "2-0", res[0].ID)
	})

	t.Run("ShouldRejectBadArguments", func(t *testing.T) {
		_, err := m.Search(ctx, nil, 3)
		assert.Error(t, err)
		_, err = m.Search(ctx, []float32{1, 0, 0}, 0)
		assert.Error(t, err)
	})

	assert.Empty(t, leftovers(t, filepath.Dir(path)))
}

func TestBuildEmptyIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	require.NoError(t, Build(context.Background(), path, collection, false, nil))
	m, err := Open(path, collection, false, nil)
	require.NoError(t, err)
	res, err := m.Search(context.Background(), []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestBuildReplacesPreviousIndex(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db")
	require.NoError(t, Build(ctx, path, collection, false, entries()))
	require.NoError(t, Build(ctx, path, collection, false, entries()[:1]))

	m, err := Open(path, collection, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Count())
}

func TestFailedBuildKeepsPreviousIndex(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	path := filepath.Join(root, "db")
	require.NoError(t, Build(ctx, path, collection, false, entries()))

	broken := append(entries(), models.IndexEntry{ID: "", Content: "no id", Embedding: []float32{1, 1, 0}})
	require.Error(t, Build(ctx, path, collection, false, broken))

	m, err := Open(path, collection, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Count())
	assert.Empty(t, leftovers(t, root))
}

func TestFailedFirstBuildLeavesNoIndex(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "db")
	broken := []models.IndexEntry{{ID: "", Content: "no id", Embedding: []float32{1, 0, 0}}}
	require.Error(t, Build(context.Background(), path, collection, false, broken))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = Open(path, collection, false, nil)
	assert.ErrorIs(t, err, models.ErrIndexNotFound)
}

func TestOpenMissing(t *testing.T) {
	t.Run("ShouldReportMissingDirectory", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "nope"), collection, false, nil)
		assert.ErrorIs(t, err, models.ErrIndexNotFound)
	})

	t.Run("ShouldReportMissingCollection", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "db")
		require.NoError(t, Build(context.Background(), path, "other", false, entries()))
		_, err := Open(path, collection, false, nil)
		assert.ErrorIs(t, err, models.ErrIndexNotFound)
	})
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	path := filepath.Join(root, "db")
	require.NoError(t, Build(ctx, path, collection, true, entries()))

	key := strings.Repeat("k", 32)
	m, err := Open(path, collection, true, nil)
	require.NoError(t, err)
	file := filepath.Join(root, "backup", "index.gob.gz")
	require.NoError(t, m.WithEncryptionKey(key).Export(file))

	restored := filepath.Join(root, "restored")
	require.NoError(t, Import(restored, collection, true, file, key))

	r, err := Open(restored, collection, true, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Count())
	res, err := r.Search(ctx, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Essaouira is windy", res[0].Content)

	assert.Error(t, Import(filepath.Join(root, "x"), collection, true, filepath.Join(root, "missing.gob"), key))
	assert.Error(t, m.Export(""))
}
