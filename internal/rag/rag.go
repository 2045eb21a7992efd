package rag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"morocco-rag/internal/chromemdb"
	"morocco-rag/internal/config"
	"morocco-rag/internal/db"
	"morocco-rag/internal/embedding"
	"morocco-rag/internal/llmservice"
	"morocco-rag/internal/models"
)

// Retriever returns the k stored chunks closest to a query vector, best first
type Retriever interface {
	Search(ctx context.Context, embedding []float32, k int) ([]models.SearchResult, error)
}

type Options struct {
	Embedder       embeddings.Embedder
	Retriever      Retriever
	Generator      llmservice.Generator
	TopK           int
	IncludeSources bool
	// Timeout bounds a single generator call, zero means no limit
	Timeout time.Duration
}

// RAG answers questions from the vector index. It keeps no per-question state
// and can be shared by callers that serialise their own conversations.
type RAG struct {
	embedder       embeddings.Embedder
	retriever      Retriever
	generator      llmservice.Generator
	topK           int
	includeSources bool
	timeout        time.Duration
}

func New(opts Options) (*RAG, error) {
	var missing []string
	if opts.Embedder == nil {
		missing = append(missing, "embedder")
	}
	if opts.Retriever == nil {
		missing = append(missing, "retriever")
	}
	if opts.Generator == nil {
		missing = append(missing, "generator")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", models.ErrInitialization, strings.Join(missing, ", "))
	}
	if opts.TopK <= 0 {
		return nil, fmt.Errorf("%w: top k must be greater than zero", models.ErrInitialization)
	}
	return &RAG{
		embedder:       opts.Embedder,
		retriever:      opts.Retriever,
		generator:      opts.Generator,
		topK:           opts.TopK,
		includeSources: opts.IncludeSources,
		timeout:        opts.Timeout,
	}, nil
}

// Load wires the pipeline from config: the embedder used at ingestion, the
// persisted index and the generator. Any failure is wrapped in
// models.ErrInitialization together with its cause.
func Load(ctx context.Context, cfg *config.Config) (*RAG, error) {
	start := time.Now()
	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrInitialization, err)
	}

	retriever, err := OpenRetriever(ctx, &cfg.Index, embedder)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrInitialization, err)
	}

	generator, err := llmservice.Load(ctx, &cfg.Generator)
	if err != nil {
		closeRetriever(retriever)
		return nil, fmt.Errorf("%w: %w", models.ErrInitialization, err)
	}

	r, err := New(Options{
		Embedder:       embedder,
		Retriever:      retriever,
		Generator:      generator,
		TopK:           cfg.RAG.TopK,
		IncludeSources: cfg.RAG.IncludeSources,
		Timeout:        cfg.Generator.Timeout,
	})
	if err != nil {
		closeRetriever(retriever)
		return nil, err
	}
	log.Info().Str("backend", cfg.Index.Backend).Str("index", cfg.Index.Path).Str("model", cfg.Generator.Model).
		Dur("took", time.Since(start)).Msg("Pipeline ready")
	return r, nil
}

// OpenRetriever opens the configured index backend for searching
func OpenRetriever(ctx context.Context, cfg *config.IndexConfig, embedder embeddings.Embedder) (Retriever, error) {
	switch cfg.Backend {
	case config.BackendChromem, "":
		m, err := chromemdb.Open(cfg.Path, cfg.Collection, cfg.Compress, EmbeddingFunc(embedder))
		if err != nil {
			return nil, err
		}
		return m, nil
	case config.BackendPGVector:
		s, err := db.Open(ctx, cfg, cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown index backend: %s", cfg.Backend)
	}
}

// EmbeddingFunc adapts a langchaingo embedder to chromem so text queries
// against the collection use the ingestion model
func EmbeddingFunc(embedder embeddings.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	}
}

func closeRetriever(r Retriever) {
	if c, ok := r.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close index")
		}
	}
}

// Close releases the index connection, if the backend holds one
func (r *RAG) Close() {
	closeRetriever(r.retriever)
}

// Answer runs one question through retrieval, prompting, generation and
// cleanup. Retrieval failures wrap models.ErrRetrieval and generator failures
// wrap models.ErrGeneration.
func (r *RAG) Answer(ctx context.Context, question string) (*models.PromptResponse, error) {
	if strings.TrimSpace(question) == "" {
		return nil, models.ErrEmptyQuestion
	}
	start := time.Now()

	vec, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: embed question: %w", models.ErrRetrieval, err)
	}
	results, err := r.retriever.Search(ctx, vec, r.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrRetrieval, err)
	}
	log.Debug().Int("results", len(results)).Msg("Retrieved context")

	prompt, err := FormatPrompt(JoinContext(results), question)
	if err != nil {
		return nil, err
	}

	genCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	raw, err := r.generator.Generate(genCtx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("no answer within %s: %w", r.timeout, err)
		}
		return nil, fmt.Errorf("%w: %w", models.ErrGeneration, err)
	}

	answer := Clean(raw)
	if r.includeSources {
		answer += formatSources(results)
	}
	log.Debug().Dur("took", time.Since(start)).Msg("Answered question")
	return &models.PromptResponse{
		Query:   question,
		Source:  results,
		Content: answer,
	}, nil
}
