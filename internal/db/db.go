package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"morocco-rag/internal/config"
	"morocco-rag/internal/models"
)

const insertBatchSize = 500

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`
	ID            string            `bun:"id,pk"`
	Content       string            `bun:"content,notnull"`
	Metadata      map[string]string `bun:"metadata,type:jsonb"`
	Embedding     pgvector.Vector   `bun:"embedding,notnull"`
	Similarity    float32           `bun:"similarity,scanonly"`
}

// Store is a pgvector backed chunk index living in a single table
type Store struct {
	db    *bun.DB
	table string
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func ConnectDB(cfg *config.IndexConfig) *sql.DB {
	opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
	if cfg.Password != "" {
		opts = append(opts, pgdriver.WithPassword(cfg.Password))
	}
	return sql.OpenDB(pgdriver.NewConnector(opts...))
}

func validTable(table string) error {
	if !tableNameRe.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}

// Open connects to Postgres and checks that the index table exists
func Open(ctx context.Context, cfg *config.IndexConfig, table string) (*Store, error) {
	if err := validTable(table); err != nil {
		return nil, err
	}
	db := NewDB(ConnectDB(cfg), cfg.Debug)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	var name sql.NullString
	if err := db.NewRaw("SELECT to_regclass(?)", table).Scan(ctx, &name); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to look up table %s: %w", table, err)
	}
	if !name.Valid {
		db.Close()
		return nil, fmt.Errorf("%w: table %s", models.ErrIndexNotFound, table)
	}
	return &Store{db: db, table: table}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Count(ctx context.Context) (int, error) {
	return s.db.NewSelect().Model((*Document)(nil)).ModelTableExpr("? AS d", bun.Ident(s.table)).Count(ctx)
}

// Search orders rows by cosine distance to embedding and returns the k closest
func (s *Store) Search(ctx context.Context, embedding []float32, k int) ([]models.SearchResult, error) {
	if len(embedding) == 0 {
		return nil, errors.New("query embedding is empty")
	}
	if k <= 0 {
		return nil, fmt.Errorf("invalid number of results: %d", k)
	}
	vec := pgvector.NewVector(embedding)

	var docs []Document
	err := s.db.NewSelect().
		Model(&docs).
		ModelTableExpr("? AS d", bun.Ident(s.table)).
		ColumnExpr("d.id, d.content, d.metadata").
		ColumnExpr("1 - (d.embedding <=> ?) AS similarity", vec).
		OrderExpr("d.embedding <=> ?", vec).
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	out := make([]models.SearchResult, len(docs))
	for i, d := range docs {
		out[i] = models.SearchResult{ID: d.ID, Content: d.Content, Metadata: d.Metadata, Similarity: d.Similarity}
	}
	return out, nil
}

// Writer rebuilds the index table for the ingestion pipeline
type Writer struct {
	Config *config.IndexConfig
}

// Write drops and recreates the table and inserts every entry in one
// transaction, so readers see either the old index or the complete new one
func (w Writer) Write(ctx context.Context, table string, entries []models.IndexEntry) error {
	if err := validTable(table); err != nil {
		return err
	}
	db := NewDB(ConnectDB(w.Config), w.Config.Debug)
	defer db.Close()

	docs := make([]Document, len(entries))
	for i, e := range entries {
		if len(e.Embedding) != w.Config.Dimension {
			return fmt.Errorf("entry %s has dimension %d, index expects %d", e.ID, len(e.Embedding), w.Config.Dimension)
		}
		docs[i] = Document{ID: e.ID, Content: e.Content, Metadata: e.Metadata, Embedding: pgvector.NewVector(e.Embedding)}
	}

	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
			return fmt.Errorf("failed to enable pgvector: %w", err)
		}
		if _, err := tx.NewRaw("DROP TABLE IF EXISTS ?", bun.Ident(table)).Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
		if _, err := tx.NewRaw(
			"CREATE TABLE ? (id text PRIMARY KEY, content text NOT NULL, metadata jsonb, embedding vector(?) NOT NULL)",
			bun.Ident(table), w.Config.Dimension,
		).Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
		for start := 0; start < len(docs); start += insertBatchSize {
			batch := docs[start:min(start+insertBatchSize, len(docs))]
			if _, err := tx.NewInsert().Model(&batch).ModelTableExpr("?", bun.Ident(table)).Exec(ctx); err != nil {
				return fmt.Errorf("failed to insert documents: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Debug().Str("table", table).Int("documents", len(docs)).Msg("Stored documents")
	return nil
}
