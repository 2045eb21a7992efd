package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"morocco-rag/internal/chromemdb"
	"morocco-rag/internal/chunker"
	"morocco-rag/internal/config"
	"morocco-rag/internal/db"
	"morocco-rag/internal/embedding"
	"morocco-rag/internal/models"
	"morocco-rag/internal/parser"
)

// IndexWriter replaces the whole index at path with entries. Implementations
// must not leave a partially written index behind on failure.
type IndexWriter interface {
	Write(ctx context.Context, path string, entries []models.IndexEntry) error
}

type Pipeline struct {
	embedder     embeddings.Embedder
	chunker      *chunker.Chunker
	writer       IndexWriter
	parser       parser.Parser
	extraSources []string
}

type Option func(*Pipeline)

// WithExtraSources adds documents parsed from files matching the glob patterns
func WithExtraSources(p parser.Parser, patterns []string) Option {
	return func(pl *Pipeline) {
		pl.parser = p
		pl.extraSources = patterns
	}
}

func New(embedder embeddings.Embedder, c *chunker.Chunker, writer IndexWriter, opts ...Option) (*Pipeline, error) {
	if embedder == nil || c == nil || writer == nil {
		return nil, errors.New("ingest: embedder, chunker and writer are required")
	}
	p := &Pipeline{embedder: embedder, chunker: c, writer: writer}
	for _, o := range opts {
		o(p)
	}
	if p.parser == nil {
		p.parser = parser.FileParser{}
	}
	return p, nil
}

// NewWriter returns the index writer for the configured backend
func NewWriter(cfg *config.IndexConfig) (IndexWriter, error) {
	switch cfg.Backend {
	case config.BackendChromem, "":
		return chromemdb.Writer{Collection: cfg.Collection, Compress: cfg.Compress}, nil
	case config.BackendPGVector:
		return db.Writer{Config: cfg}, nil
	default:
		return nil, fmt.Errorf("unknown index backend: %s", cfg.Backend)
	}
}

// FromConfig wires the pipeline the same way the query side loads it
func FromConfig(cfg *config.Config) (*Pipeline, error) {
	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		return nil, err
	}
	c, err := chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	writer, err := NewWriter(&cfg.Index)
	if err != nil {
		return nil, err
	}
	return New(embedder, c, writer, WithExtraSources(parser.FileParser{}, cfg.Ingest.ExtraSources))
}

// Build loads the dataset, chunks and embeds every document and writes a fresh
// index at indexPath
func (p *Pipeline) Build(ctx context.Context, datasetPath, indexPath string) error {
	start := time.Now()

	records, err := parser.LoadDataset(datasetPath)
	if err != nil {
		return err
	}
	docs := make([]models.Document, 0, len(records))
	for _, r := range records {
		docs = append(docs, parser.RecordToDocument(r))
	}

	if len(p.extraSources) > 0 {
		extra, err := parser.ParseFiles(p.parser, p.extraSources)
		if err != nil {
			return fmt.Errorf("failed to parse extra sources: %w", err)
		}
		log.Info().Int("documents", len(extra)).Msg("Parsed extra sources")
		docs = append(docs, extra...)
	}

	chunks, err := p.chunker.SplitDocuments(docs)
	if err != nil {
		return fmt.Errorf("failed to chunk documents: %w", err)
	}
	log.Debug().Int("documents", len(docs)).Int("chunks", len(chunks)).Msg("Split documents")

	entries, err := embedding.EmbedChunks(ctx, p.embedder, chunks)
	if err != nil {
		return err
	}

	if err := p.writer.Write(ctx, indexPath, entries); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}

	log.Info().
		Str("dataset", datasetPath).
		Str("index", indexPath).
		Int("records", len(records)).
		Int("documents", len(docs)).
		Int("chunks", len(chunks)).
		Dur("took", time.Since(start)).
		Msg("Built vector index")
	return nil
}
