package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"morocco-rag/internal/helper"
	"morocco-rag/internal/models"
)

// VectorDBManager encapsulates a loaded chromem-go persistent database and the
// one collection holding the chunk index
type VectorDBManager struct {
	db            *chromem.DB
	collection    *chromem.Collection
	dbPath        string
	compress      bool
	encryptionKey string
}

// Writer builds chromem indexes for the ingestion pipeline
type Writer struct {
	Collection string
	Compress   bool
}

func (w Writer) Write(ctx context.Context, dbPath string, entries []models.IndexEntry) error {
	return Build(ctx, dbPath, w.Collection, w.Compress, entries)
}

// Build writes a complete index at dbPath. Documents are added to a sibling
// temporary directory which replaces dbPath only once everything is on disk, so
// a failed build never leaves a half written index behind.
func Build(ctx context.Context, dbPath, collectionName string, compress bool, entries []models.IndexEntry) error {
	return buildAtomically(dbPath, func(tmpPath string) error {
		db, err := chromem.NewPersistentDB(tmpPath, compress)
		if err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
		c, err := db.CreateCollection(collectionName, nil, nil)
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		if len(entries) == 0 {
			log.Warn().Str("path", dbPath).Msg("Building an empty index")
			return nil
		}

		docs := make([]chromem.Document, len(entries))
		for i, e := range entries {
			docs[i] = chromem.Document{
				ID:        e.ID,
				Content:   e.Content,
				Metadata:  e.Metadata,
				Embedding: e.Embedding,
			}
		}
		if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return fmt.Errorf("failed to add documents: %w", err)
		}
		return nil
	})
}

// Open loads an index previously written by Build. A missing directory or
// collection is reported as models.ErrIndexNotFound.
func Open(dbPath, collectionName string, compress bool, embed chromem.EmbeddingFunc) (*VectorDBManager, error) {
	info, err := os.Stat(dbPath)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", models.ErrIndexNotFound, dbPath)
	}

	db, err := chromem.NewPersistentDB(dbPath, compress)
	if err != nil {
		return nil, fmt.Errorf("failed to load database: %w", err)
	}
	c := db.GetCollection(collectionName, embed)
	if c == nil {
		return nil, fmt.Errorf("%w: collection %q missing in %s", models.ErrIndexNotFound, collectionName, dbPath)
	}

	log.Debug().Str("path", dbPath).Str("collection", collectionName).Int("documents", c.Count()).Msg("Loaded vector index")
	return &VectorDBManager{
		db:         db,
		collection: c,
		dbPath:     dbPath,
		compress:   compress,
	}, nil
}

func (m *VectorDBManager) WithEncryptionKey(key string) *VectorDBManager {
	m.encryptionKey = key
	return m
}

func (m *VectorDBManager) Count() int {
	return m.collection.Count()
}

// Search returns the k stored chunks most similar to embedding, best first.
// k is clamped to the number of stored chunks.
func (m *VectorDBManager) Search(ctx context.Context, embedding []float32, k int) ([]models.SearchResult, error) {
	if len(embedding) == 0 {
		return nil, errors.New("query embedding is empty")
	}
	if k <= 0 {
		return nil, fmt.Errorf("invalid number of results: %d", k)
	}
	n := min(k, m.collection.Count())
	if n == 0 {
		return nil, nil
	}

	results, err := m.collection.QueryEmbedding(ctx, embedding, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	out := make([]models.SearchResult, len(results))
	for i, r := range results {
		out[i] = models.SearchResult{
			ID:         r.ID,
			Content:    r.Content,
			Metadata:   r.Metadata,
			Similarity: r.Similarity,
		}
	}
	return out, nil
}

// Export writes the collection into a single gob file, gzip compressed and AES
// encrypted when configured
func (m *VectorDBManager) Export(filePath string) error {
	if filePath == "" {
		return errors.New("export file path is required")
	}
	if err := helper.CreateFolder(filepath.Dir(filePath)); err != nil {
		return err
	}

	log.Debug().Str("collection", m.collection.Name).Str("file", filePath).Bool("compress", m.compress).
		Bool("encrypted", m.encryptionKey != "").Msg("Exporting collection")
	if err := m.db.ExportToFile(filePath, m.compress, m.encryptionKey, m.collection.Name); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// Import replaces the index at dbPath with the collection stored in an export file
func Import(dbPath, collectionName string, compress bool, filePath, encryptionKey string) error {
	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("failed to read export file: %w", err)
	}
	return buildAtomically(dbPath, func(tmpPath string) error {
		db, err := chromem.NewPersistentDB(tmpPath, compress)
		if err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
		if err := db.ImportFromFile(filePath, encryptionKey, collectionName); err != nil {
			return fmt.Errorf("failed to import database: %w", err)
		}
		if db.GetCollection(collectionName, nil) == nil {
			return fmt.Errorf("%w: collection %q missing in %s", models.ErrIndexNotFound, collectionName, filePath)
		}
		return nil
	})
}

func buildAtomically(dbPath string, fill func(tmpPath string) error) error {
	dbPath = filepath.Clean(dbPath)
	if err := helper.CreateFolder(filepath.Dir(dbPath)); err != nil {
		return err
	}

	id, err := helper.GenerateUUID()
	if err != nil {
		return err
	}
	tmpPath := dbPath + ".building-" + id

	if err := fill(tmpPath); err != nil {
		if rmErr := os.RemoveAll(tmpPath); rmErr != nil {
			log.Warn().Err(rmErr).Str("path", tmpPath).Msg("Failed to remove partial index")
		}
		return err
	}

	if err := os.RemoveAll(dbPath); err != nil {
		_ = os.RemoveAll(tmpPath)
		return fmt.Errorf("failed to remove previous index: %w", err)
	}
	if err := os.Rename(tmpPath, dbPath); err != nil {
		_ = os.RemoveAll(tmpPath)
		return fmt.Errorf("failed to move index into place: %w", err)
	}
	return nil
}
