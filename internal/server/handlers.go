package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"morocco-rag/internal/models"
)

type createSessionResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type messageRequest struct {
	Content string `json:"content"`
}

type messageResponse struct {
	Answer string `json:"answer"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to start chat session")
		s.respondError(w, http.StatusServiceUnavailable, models.UserMessageInitFailed)
		return
	}
	s.respondJSON(w, http.StatusCreated, createSessionResponse{ID: sess.ID, Message: models.UserMessageWelcome})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.sessions.Get(id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		s.respondError(w, http.StatusBadRequest, models.UserMessageEmptyQuery)
		return
	}

	log.Debug().Str("session", id).Str("question", req.Content).Msg("Question received")
	resp, err := sess.Ask(r.Context(), req.Content)
	if err != nil {
		if errors.Is(err, models.ErrEmptyQuestion) {
			s.respondError(w, http.StatusBadRequest, models.UserMessageEmptyQuery)
			return
		}
		log.Error().Err(err).Str("session", id).Msg("Error processing query")
		s.respondError(w, http.StatusInternalServerError, models.UserMessageQueryFailed)
		return
	}
	s.respondJSON(w, http.StatusOK, messageResponse{Answer: resp.Content})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.Delete(id); err != nil {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "closed"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.sessions.Len()})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
