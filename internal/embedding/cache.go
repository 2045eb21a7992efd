package embedding

import (
	"context"
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tmc/langchaingo/embeddings"
)

// CachedEmbedder remembers question vectors so repeated questions skip the model.
// Document embedding is passed through untouched.
type CachedEmbedder struct {
	impl  embeddings.Embedder
	cache *lru.Cache[string, []float32]
}

func NewCachedEmbedder(impl embeddings.Embedder, size int) (*CachedEmbedder, error) {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	return &CachedEmbedder{impl: impl, cache: cache}, nil
}

func (c *CachedEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return c.impl.EmbedDocuments(ctx, texts)
}

func (c *CachedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.cache.Get(text); ok {
		return slices.Clone(vec), nil
	}
	vec, err := c.impl.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, slices.Clone(vec))
	return vec, nil
}

func (c *CachedEmbedder) Len() int { return c.cache.Len() }
