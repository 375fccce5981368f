// Package view serves the Pokémon dashboard as HTML and JSON and renders
// the plain text listing used by print mode.
package view

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Sternrassler/pokedash/pkg/dataset"
	"github.com/Sternrassler/pokedash/pkg/logging"
	"github.com/Sternrassler/pokedash/pkg/metrics"
	"github.com/Sternrassler/pokedash/pkg/ratelimit"
	"github.com/rs/zerolog"
)

// DataSource exposes the loaded record set. *dataset.Dataset implements it.
type DataSource interface {
	Status() dataset.Status
	Snapshot() (*dataset.Snapshot, error)
}

// RateLimitReporter exposes the shared request budget. *ratelimit.Tracker
// implements it.
type RateLimitReporter interface {
	Shared() bool
	GetState(ctx context.Context) (ratelimit.State, error)
}

// Server wires the dashboard routes.
type Server struct {
	source    DataSource
	rateLimit RateLimitReporter
	logger    zerolog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimit reports the shared request budget in /api/status.
func WithRateLimit(r RateLimitReporter) Option {
	return func(s *Server) {
		s.rateLimit = r
	}
}

// WithLogger replaces the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new dashboard server.
func NewServer(source DataSource, opts ...Option) *Server {
	s := &Server{
		source: source,
		logger: logging.NewLogger("view"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", MetricsMiddleware(s.handleDashboard, "dashboard"))
	mux.HandleFunc("GET /health", MetricsMiddleware(s.handleHealth, "health"))
	mux.HandleFunc("GET /api/status", MetricsMiddleware(s.handleStatus, "status"))
	mux.HandleFunc("GET /api/stats", MetricsMiddleware(s.handleStats, "stats"))
	mux.HandleFunc("GET /api/types", MetricsMiddleware(s.handleTypes, "types"))
	mux.HandleFunc("GET /api/pokemon", MetricsMiddleware(s.handleListPokemon, "pokemon"))
	mux.HandleFunc("GET /api/pokemon/{id}", MetricsMiddleware(s.handleGetPokemon, "pokemon_by_id"))
	mux.Handle("GET /metrics", metrics.Handler())
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// snapshot returns the ready snapshot or writes the loading / failed
// response and returns nil.
func (s *Server) snapshot(w http.ResponseWriter) *dataset.Snapshot {
	snap, err := s.source.Snapshot()
	switch {
	case err == nil:
		return snap
	case errors.Is(err, dataset.ErrNotReady):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "loading", err)
	case errors.Is(err, dataset.ErrLoadFailed):
		writeError(w, http.StatusBadGateway, "load_failed", err)
	default:
		s.logger.Error().Err(err).Msg("Snapshot unavailable")
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
	return nil
}
