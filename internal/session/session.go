// Package session keeps one question answering pipeline per open chat
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"morocco-rag/internal/helper"
	"morocco-rag/internal/models"
)

type Pipeline interface {
	Answer(ctx context.Context, question string) (*models.PromptResponse, error)
	Close()
}

// Factory builds the pipeline for a new session
type Factory func(ctx context.Context) (Pipeline, error)

// Session owns its pipeline and answers one question at a time
type Session struct {
	ID      string
	Created time.Time

	mu       sync.Mutex
	pipeline Pipeline
}

// Ask waits for any question already running in this session
func (s *Session) Ask(ctx context.Context, question string) (*models.PromptResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pipeline.Answer(ctx, question)
}

type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	factory  Factory
}

func NewRegistry(factory Factory) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		factory:  factory,
	}
}

// Create builds a pipeline and registers a session for it. Failures are
// reported as models.ErrInitialization.
func (r *Registry) Create(ctx context.Context) (*Session, error) {
	p, err := r.factory(ctx)
	if err != nil {
		if !errors.Is(err, models.ErrInitialization) {
			err = fmt.Errorf("%w: %w", models.ErrInitialization, err)
		}
		return nil, err
	}
	id, err := helper.GenerateUUID()
	if err != nil {
		p.Close()
		return nil, err
	}

	s := &Session{ID: id, Created: time.Now(), pipeline: p}
	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	log.Debug().Str("session", id).Msg("Session created")
	return s, nil
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrSessionNotFound, id)
	}
	return s, nil
}

// Delete ends the session and releases its pipeline once any running question
// has finished
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrSessionNotFound, id)
	}

	s.mu.Lock()
	s.pipeline.Close()
	s.mu.Unlock()
	log.Debug().Str("session", id).Dur("age", time.Since(s.Created)).Msg("Session closed")
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll ends every session
func (r *Registry) CloseAll() {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	for _, id := range ids {
		_ = r.Delete(id)
	}
}
