package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/toppicks/bestseller-scraper/internal/metrics"
	"github.com/toppicks/bestseller-scraper/internal/storage"
)

// Server exposes a read-only ops surface for long unattended runs: health,
// Prometheus metrics and the current checkpoint.
type Server struct {
	state   *storage.StateStore
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewServer(state *storage.StateStore, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		state:   state,
		metrics: m,
		logger:  logger.With("component", "ops_api"),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/state", s.handleState)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))

	return r
}

// Start runs the ops server in the background. Failures are logged, not
// fatal: the scraper works fine without its ops surface.
func (s *Server) Start(addr string) {
	go func() {
		s.logger.Info("ops server listening", "addr", addr)
		if err := http.ListenAndServe(addr, s.Router()); err != nil {
			s.logger.Error("ops server stopped", "error", err)
		}
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	state, err := s.state.Load()
	if err != nil {
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.respondJSON(w, http.StatusOK, state)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
