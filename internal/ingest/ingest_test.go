package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"morocco-rag/internal/chromemdb"
	"morocco-rag/internal/chunker"
	"morocco-rag/internal/config"
	"morocco-rag/internal/db"
	"morocco-rag/internal/models"
	"morocco-rag/internal/parser"
	"morocco-rag/internal/testutil"
)

const collection = "morocco_tourism"

type recordingWriter struct {
	path    string
	entries []models.IndexEntry
	err     error
}

func (w *recordingWriter) Write(_ context.Context, path string, entries []models.IndexEntry) error {
	w.path = path
	w.entries = entries
	return w.err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func newPipeline(t *testing.T, w IndexWriter, opts ...Option) (*Pipeline, *testutil.KeywordEmbedder) {
	t.Helper()
	c, err := chunker.New(500, 50)
	require.NoError(t, err)
	emb := testutil.NewKeywordEmbedder()
	p, err := New(emb, c, w, opts...)
	require.NoError(t, err)
	return p, emb
}

func TestBuildSingleRecord(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dataset := writeFile(t, dir, "dataset.json", `[{"instruction": "Visit Fes", "category": "culture"}]`)
	indexPath := filepath.Join(dir, "vectorstore", "db_chromem")

	p, emb := newPipeline(t, chromemdb.Writer{Collection: collection})
	require.NoError(t, p.Build(ctx, dataset, indexPath))

	m, err := chromemdb.Open(indexPath, collection, false, nil)
	require.NoError(t, err)
	require.Equal(t, 1, m.Count())

	q, err := emb.EmbedQuery(ctx, "fes")
	require.NoError(t, err)
	res, err := m.Search(ctx, q, 3)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "0-0", res[0].ID)
	assert.Equal(t, "Instruction: Visit Fes\nInput: \nOutput: \nCategory: culture", res[0].Content)
	assert.Equal(t, map[string]string{
		models.MetaSource:              models.DatasetSource,
		models.MetaCategory:            "culture",
		models.MetaOriginalInstruction: "Visit Fes",
	}, res[0].Metadata)
}

func TestBuildChunksLongRecords(t *testing.T) {
	dir := t.TempDir()
	long := strings.Repeat("The riads of Marrakech surround quiet courtyards. ", 40)
	dataset := writeFile(t, dir, "dataset.json", `[{"instruction":"Where to stay?","output":"`+long+`","category":"lodging"},{"instruction":"Surf?"}]`)

	w := &recordingWriter{}
	p, _ := newPipeline(t, w)
	require.NoError(t, p.Build(context.Background(), dataset, "idx"))

	assert.Equal(t, "idx", w.path)
	require.Greater(t, len(w.entries), 2)
	last := w.entries[len(w.entries)-1]
	assert.True(t, strings.HasPrefix(last.ID, "1-"))
	for _, e := range w.entries {
		assert.LessOrEqual(t, utf8.RuneCountInString(e.Content), 500)
		assert.NotEmpty(t, strings.TrimSpace(e.Content))
		assert.Len(t, e.Embedding, len(testutil.DefaultVocabulary)+1)
		if strings.HasPrefix(e.ID, "0-") {
			assert.Equal(t, "lodging", e.Metadata[models.MetaCategory])
		}
	}
}

func TestBuildWithExtraSources(t *testing.T) {
	dir := t.TempDir()
	dataset := writeFile(t, dir, "dataset.json", `[{"instruction":"Visit Fes","category":"culture"}]`)
	guides := filepath.Join(dir, "guides")
	require.NoError(t, os.MkdirAll(guides, 0o755))
	writeFile(t, guides, "chefchaouen.txt", "Chefchaouen is the blue city.")
	writeFile(t, guides, "food.md", "# Food\n\nTry a lamb tagine.")
	writeFile(t, guides, "notes.bin", "ignored")

	w := &recordingWriter{}
	p, _ := newPipeline(t, w, WithExtraSources(parser.FileParser{}, []string{filepath.Join(guides, "*")}))
	require.NoError(t, p.Build(context.Background(), dataset, "idx"))

	require.Len(t, w.entries, 3)
	sources := map[string]bool{}
	for _, e := range w.entries {
		sources[e.Metadata[models.MetaSource]] = true
	}
	assert.True(t, sources[models.DatasetSource])
	assert.True(t, sources["chefchaouen.txt"])
	assert.True(t, sources["food.md"])
}

func TestBuildFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("ShouldRejectMissingDataset", func(t *testing.T) {
		dir := t.TempDir()
		indexPath := filepath.Join(dir, "db")
		p, _ := newPipeline(t, chromemdb.Writer{Collection: collection})
		err := p.Build(ctx, filepath.Join(dir, "missing.json"), indexPath)
		assert.ErrorIs(t, err, models.ErrDatasetFormat)
		_, statErr := os.Stat(indexPath)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("ShouldRejectNonArray", func(t *testing.T) {
		dir := t.TempDir()
		dataset := writeFile(t, dir, "dataset.json", `{"instruction":"Visit Fes"}`)
		p, _ := newPipeline(t, &recordingWriter{})
		assert.ErrorIs(t, p.Build(ctx, dataset, "idx"), models.ErrDatasetFormat)
	})

	t.Run("ShouldKeepPreviousIndexWhenEmbeddingFails", func(t *testing.T) {
		dir := t.TempDir()
		dataset := writeFile(t, dir, "dataset.json", `[{"instruction":"Visit Fes"},{"instruction":"Visit Essaouira"}]`)
		indexPath := filepath.Join(dir, "db")

		p, emb := newPipeline(t, chromemdb.Writer{Collection: collection})
		require.NoError(t, p.Build(ctx, dataset, indexPath))

		emb.Err = errors.New("embedder offline")
		require.Error(t, p.Build(ctx, dataset, indexPath))

		m, err := chromemdb.Open(indexPath, collection, false, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, m.Count())
	})

	t.Run("ShouldReportWriterFailure", func(t *testing.T) {
		dir := t.TempDir()
		dataset := writeFile(t, dir, "dataset.json", `[{"instruction":"Visit Fes"}]`)
		boom := errors.New("disk full")
		p, _ := newPipeline(t, &recordingWriter{err: boom})
		assert.ErrorIs(t, p.Build(ctx, dataset, "idx"), boom)
	})
}

func TestNew(t *testing.T) {
	c, err := chunker.New(500, 50)
	require.NoError(t, err)
	_, err = New(nil, c, &recordingWriter{})
	assert.Error(t, err)
	_, err = New(testutil.NewKeywordEmbedder(), nil, &recordingWriter{})
	assert.Error(t, err)
}

func TestNewWriter(t *testing.T) {
	cfg := config.Default()
	w, err := NewWriter(&cfg.Index)
	require.NoError(t, err)
	assert.Equal(t, chromemdb.Writer{Collection: collection}, w)

	cfg.Index.Backend = config.BackendPGVector
	w, err = NewWriter(&cfg.Index)
	require.NoError(t, err)
	assert.IsType(t, db.Writer{}, w)

	cfg.Index.Backend = "faiss"
	_, err = NewWriter(&cfg.Index)
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Ingest.ExtraSources = []string{"guides/*.md"}
	p, err := FromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"guides/*.md"}, p.extraSources)

	cfg.RAG.ChunkOverlap = cfg.RAG.ChunkSize
	_, err = FromConfig(cfg)
	assert.Error(t, err)
}
