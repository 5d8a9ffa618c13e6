package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"ai-article-queue/internal/config"
	"ai-article-queue/internal/usecase"
)

// askLimiter gates a client key against a per-window request budget.
type askLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type Server struct {
	queue  usecase.QueueUseCase
	answer usecase.AnswerUseCase
	auth   *AuthManager

	adminPassword    string
	defaultThreshold float64
	askLimiter       askLimiter
	askLimitPerMin   int

	log zerolog.Logger
}

func NewServer(
	queue usecase.QueueUseCase,
	answer usecase.AnswerUseCase,
	auth *AuthManager,
	cfg *config.Config,
	limiter askLimiter,
	logger zerolog.Logger,
) *Server {
	return &Server{
		queue:            queue,
		answer:           answer,
		auth:             auth,
		adminPassword:    cfg.Admin.Password,
		defaultThreshold: cfg.Answer.SimilarityThreshold,
		askLimiter:       limiter,
		askLimitPerMin:   cfg.Answer.RateLimitPerMinute,
		log:              logger.With().Str("component", "web").Logger(),
	}
}

// Router builds the full route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/", s.handleWelcome)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/queue-article-generation", s.handleEnqueue)
	r.Get("/get-request-status/{request_id}", s.handleStatus)
	r.Get("/get-requests/{owner_id}", s.handleListByOwner)
	r.Put("/update-request-status/{request_id}", s.handleUpdate)
	r.Delete("/delete-request/{request_id}", s.handleDelete)
	r.Post("/requeue-request/{request_id}", s.handleRequeue)

	r.Post("/askllm", s.rateLimitAsk(s.handleAsk))

	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", s.handleAdminLogin)
		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/logout", s.handleAdminLogout)
			r.Post("/rebuild-index", s.handleRebuildIndex)
		})
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// requireAdmin guards mutating admin routes with the session JWT.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
