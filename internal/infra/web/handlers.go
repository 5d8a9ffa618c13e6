package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ai-article-queue/internal/domain"
	"ai-article-queue/internal/domain/ports/repository"
	redisinfra "ai-article-queue/internal/infra/redis"
)

type enqueueRequest struct {
	UserQuery string `json:"user_query"`
	Model     string `json:"model"`
	Name      string `json:"name"`
	OwnerID   string `json:"owner_id"`
}

type updateRequest struct {
	Model     *string `json:"model"`
	UserQuery *string `json:"user_query"`
}

type askRequest struct {
	Query               string   `json:"query"`
	SimilarityThreshold *float64 `json:"similarity_threshold"`
}

func (s *Server) handleWelcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to the Article Generation Queue API. Use the endpoints to queue article requests and manage them.",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	receipt, err := s.queue.Enqueue(r.Context(), req.UserQuery, req.Model, req.Name, req.OwnerID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	view, err := s.queue.GetStatus(r.Context(), chi.URLParam(r, "request_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleListByOwner(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "owner_id")
	if ownerID == "" {
		http.Error(w, "owner_id is required", http.StatusBadRequest)
		return
	}
	views, err := s.queue.ListByOwner(r.Context(), ownerID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	msg, err := s.queue.UpdateIfPending(r.Context(), chi.URLParam(r, "request_id"), repository.JobPatch{
		Model:     req.Model,
		UserQuery: req.UserQuery,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "request_id")
	if err := s.queue.DeleteIfPending(r.Context(), requestID); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Request with ID " + requestID + " deleted successfully.",
	})
}

func (s *Server) handleRequeue(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "request_id")
	if err := s.queue.Requeue(r.Context(), requestID); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Request " + requestID + " requeued for processing.",
	})
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if s.adminPassword == "" ||
		subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.adminPassword)) != 1 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	token, err := s.auth.Mint(w)
	if err != nil {
		s.log.Error().Err(err).Msg("session token not minted")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, _ *http.Request) {
	s.auth.Clear(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out."})
}

func (s *Server) handleRebuildIndex(w http.ResponseWriter, r *http.Request) {
	n, err := s.answer.RebuildIndex(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("index rebuild failed")
		http.Error(w, "Index rebuild failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"documents_indexed": n})
}

// rateLimitAsk applies the per-client budget on the streaming endpoint.
// A broken limiter fails open.
func (s *Server) rateLimitAsk(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.askLimiter != nil && s.askLimitPerMin > 0 {
			key := redisinfra.AskKey(r.RemoteAddr)
			allowed, err := s.askLimiter.Allow(r.Context(), key, s.askLimitPerMin, time.Minute)
			if err != nil {
				s.log.Warn().Err(err).Msg("rate limiter unavailable")
			} else if !allowed {
				s.writeError(w, domain.ErrRateLimited)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrConflict):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrUnauthorized):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, domain.ErrRateLimited):
		http.Error(w, err.Error(), http.StatusTooManyRequests)
	default:
		s.log.Error().Err(err).Msg("request failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
