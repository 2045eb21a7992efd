package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/embeddings/cybertron"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"morocco-rag/internal/config"
	"morocco-rag/internal/models"
)

// NewEmbedder builds the embedder used both for ingestion and for questions.
// Both sides must be built from the same config or similarity scores are meaningless.
func NewEmbedder(cfg *config.LLMConfig) (embeddings.Embedder, error) {
	log.Debug().Interface("config", map[string]any{
		"provider":   cfg.Provider,
		"base_url":   cfg.BaseURL,
		"model":      cfg.Model,
		"batch_size": cfg.BatchSize,
	}).Msg("Creating embedder")

	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	opts := []embeddings.Option{}
	if cfg.BatchSize > 0 {
		opts = append(opts, embeddings.WithBatchSize(cfg.BatchSize))
	}
	embedder, err := embeddings.NewEmbedder(client, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(embedder, cfg.CacheSize)
	}
	return embedder, nil
}

func newClient(cfg *config.LLMConfig) (embeddings.EmbedderClient, error) {
	switch cfg.Provider {
	case config.ProviderOllama, "":
		llm, err := ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama embedder: %w", err)
		}
		return llm, nil
	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithEmbeddingModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai embedder: %w", err)
		}
		return llm, nil
	case config.ProviderLocal:
		opts := []cybertron.Option{}
		if cfg.Model != "" {
			opts = append(opts, cybertron.WithModel(cfg.Model))
		}
		if cfg.ModelsDir != "" {
			opts = append(opts, cybertron.WithModelsDir(cfg.ModelsDir))
		}
		client, err := cybertron.NewCybertron(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local embedder: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown embedder provider: %s", cfg.Provider)
	}
}

// EmbedChunks embeds the chunk texts in batches and pairs each vector with its chunk
func EmbedChunks(ctx context.Context, embedder embeddings.Embedder, chunks []models.Chunk) ([]models.IndexEntry, error) {
	if len(chunks) == 0 {
		log.Info().Msg("No chunks to embed")
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	entries := make([]models.IndexEntry, len(chunks))
	dim := -1
	for i, chunk := range chunks {
		if len(vectors[i]) == 0 {
			return nil, errors.New("embedder returned an empty vector")
		}
		if dim >= 0 && len(vectors[i]) != dim {
			return nil, fmt.Errorf("embedding dimension mismatch: got %d want %d", len(vectors[i]), dim)
		}
		dim = len(vectors[i])
		entries[i] = models.IndexEntry{
			ID:        fmt.Sprintf("%d-%d", chunk.DocumentID, chunk.ChunkID),
			Content:   chunk.Content,
			Metadata:  chunk.Metadata,
			Embedding: vectors[i],
		}
	}
	return entries, nil
}
