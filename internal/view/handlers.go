package view

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/pokedash/pkg/dataset"
	"github.com/Sternrassler/pokedash/pkg/filter"
	"github.com/Sternrassler/pokedash/pkg/pokemon"
	"github.com/Sternrassler/pokedash/pkg/ratelimit"
	"github.com/Sternrassler/pokedash/pkg/stats"
)

// listResponse is the body of GET /api/pokemon.
type listResponse struct {
	Total    int              `json:"total"`
	Shown    int              `json:"shown"`
	Criteria filter.Criteria  `json:"criteria"`
	Records  []pokemon.Record `json:"records"`
}

// statusResponse is the body of GET /api/status.
type statusResponse struct {
	dataset.Status
	RateLimit *rateLimitStatus `json:"rate_limit,omitempty"`
}

// rateLimitStatus is the shared request budget of the current window.
type rateLimitStatus struct {
	WindowStart time.Time `json:"window_start"`
	Requests    int64     `json:"requests"`
	Budget      int       `json:"budget"`
	Remaining   int64     `json:"remaining"`
	Exhausted   bool      `json:"exhausted"`
}

func newRateLimitStatus(st ratelimit.State) *rateLimitStatus {
	return &rateLimitStatus{
		WindowStart: st.WindowStart,
		Requests:    st.Requests,
		Budget:      st.Budget,
		Remaining:   st.Remaining(),
		Exhausted:   st.Exhausted(),
	}
}

// handleHealth handles GET /health. It reports process liveness only.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// handleStatus handles GET /api/status.
// The rate_limit block is present only with a shared budget; a Redis error
// omits it rather than failing the request.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Status: s.source.Status()}

	if s.rateLimit != nil && s.rateLimit.Shared() {
		st, err := s.rateLimit.GetState(r.Context())
		if err != nil {
			s.logger.Warn().Err(err).Msg("Shared budget state unavailable")
		} else {
			resp.RateLimit = newRateLimitStatus(st)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleStats handles GET /api/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	writeJSON(w, http.StatusOK, stats.Compute(snap.Records))
}

// handleTypes handles GET /api/types.
func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	writeJSON(w, http.StatusOK, filter.Types(snap.Records))
}

// handleListPokemon handles GET /api/pokemon?search=&type=&min_weight=.
func (s *Server) handleListPokemon(w http.ResponseWriter, r *http.Request) {
	criteria, err := filter.ParseCriteria(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	snap := s.snapshot(w)
	if snap == nil {
		return
	}

	shown := filter.Apply(snap.Records, criteria)
	writeJSON(w, http.StatusOK, listResponse{
		Total:    snap.Len(),
		Shown:    len(shown),
		Criteria: criteria,
		Records:  shown,
	})
}

// handleGetPokemon handles GET /api/pokemon/{id}.
func (s *Server) handleGetPokemon(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid pokemon id %q", r.PathValue("id")))
		return
	}

	snap := s.snapshot(w)
	if snap == nil {
		return
	}

	rec, ok := snap.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("pokemon %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleDashboard handles GET /. The loading page refreshes itself until the
// dataset is ready; a failed load renders the error page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	criteria, err := filter.ParseCriteria(r.URL.Query())
	if err != nil {
		s.logger.Debug().Err(err).Str("query", r.URL.RawQuery).Msg("Invalid criteria, showing unfiltered dashboard")
		criteria = filter.DefaultCriteria()
	}

	snap, err := s.source.Snapshot()
	switch {
	case err == nil:
		s.renderPage(w, http.StatusOK, "dashboard.html", newDashboardPage(snap, criteria))
	case errors.Is(err, dataset.ErrNotReady):
		w.Header().Set("Refresh", strconv.Itoa(loadingRefreshSeconds))
		s.renderPage(w, http.StatusOK, "loading.html", nil)
	default:
		s.renderPage(w, http.StatusBadGateway, "error.html", errorPage{
			Status:  s.source.Status(),
			Message: err.Error(),
		})
	}
}

func (s *Server) renderPage(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error().Err(err).Str("template", name).Msg("Template render failed")
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
