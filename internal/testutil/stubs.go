// Package testutil holds deterministic collaborators for pipeline tests
package testutil

import (
	"context"
	"strings"
	"sync"
)

// DefaultVocabulary covers the destinations used across the test fixtures
var DefaultVocabulary = []string{"marrakech", "fes", "essaouira", "sahara", "chefchaouen", "tagine", "surf", "riad"}

// KeywordEmbedder maps text to keyword counts over a fixed vocabulary, plus a
// constant component so no vector is ever zero
type KeywordEmbedder struct {
	Vocabulary []string
	Err        error

	mu      sync.Mutex
	queries int
}

func NewKeywordEmbedder() *KeywordEmbedder {
	return &KeywordEmbedder{Vocabulary: DefaultVocabulary}
}

func (e *KeywordEmbedder) Dimension() int { return len(e.Vocabulary) + 1 }

func (e *KeywordEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	vec := make([]float32, e.Dimension())
	for i, w := range e.Vocabulary {
		vec[i] = float32(strings.Count(lower, w))
	}
	vec[len(e.Vocabulary)] = 0.1
	return vec
}

func (e *KeywordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *KeywordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.queries++
	e.mu.Unlock()
	if e.Err != nil {
		return nil, e.Err
	}
	return e.vector(text), nil
}

func (e *KeywordEmbedder) Queries() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queries
}

// Generator records prompts and answers through Fn, or with Answer when Fn is nil
type Generator struct {
	Answer string
	Fn     func(ctx context.Context, prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if g.Fn != nil {
		return g.Fn(ctx, prompt)
	}
	return g.Answer, nil
}

func (g *Generator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}
