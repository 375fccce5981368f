package view

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/pokedash/pkg/dataset"
	"github.com/Sternrassler/pokedash/pkg/pokemon"
	"github.com/Sternrassler/pokedash/pkg/ratelimit"
	"github.com/Sternrassler/pokedash/pkg/stats"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	status dataset.Status
	snap   *dataset.Snapshot
	err    error
}

func (f *fakeSource) Status() dataset.Status { return f.status }

func (f *fakeSource) Snapshot() (*dataset.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

type fakeBudget struct {
	shared bool
	state  ratelimit.State
	err    error
}

func (f *fakeBudget) Shared() bool { return f.shared }

func (f *fakeBudget) GetState(ctx context.Context) (ratelimit.State, error) {
	return f.state, f.err
}

func sampleRecords() []pokemon.Record {
	return []pokemon.Record{
		{ID: 1, Name: "bulbasaur", Types: []string{"grass", "poison"}, Height: 7, Weight: 69, HP: 45, Attack: 49, Defense: 49, Speed: 45, Sprite: "https://example.test/1.png"},
		{ID: 25, Name: "pikachu", Types: []string{"electric"}, Height: 4, Weight: 60, HP: 35, Attack: 55, Defense: 40, Speed: 90},
		{ID: 101, Name: "electrode", Types: []string{"electric"}, Height: 12, Weight: 666, HP: 60, Attack: 50, Defense: 70, Speed: 150},
	}
}

func readySource(t *testing.T) *fakeSource {
	t.Helper()

	snap, err := dataset.NewSnapshot(sampleRecords())
	require.NoError(t, err)
	snap.LoadID = "test-load"

	return &fakeSource{
		status: dataset.Status{State: dataset.StateReady, LoadID: "test-load", Records: snap.Len()},
		snap:   snap,
	}
}

func loadingSource() *fakeSource {
	return &fakeSource{
		status: dataset.Status{State: dataset.StateLoading},
		err:    dataset.ErrNotReady,
	}
}

func failedSource() *fakeSource {
	cause := errors.New("fetch pokemon 42: connection refused")
	return &fakeSource{
		status: dataset.Status{State: dataset.StateFailed, LoadID: "failed-load", Error: cause.Error()},
		err:    fmt.Errorf("%w: %w", dataset.ErrLoadFailed, cause),
	}
}

func do(t *testing.T, source DataSource, target string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	NewServer(source).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	for _, source := range []DataSource{readySource(t), loadingSource(), failedSource()} {
		rec := do(t, source, "/health")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())
	}
}

func TestStatus(t *testing.T) {
	rec := do(t, failedSource(), "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var status dataset.Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, dataset.StateFailed, status.State)
	assert.Equal(t, "failed-load", status.LoadID)
	assert.Contains(t, status.Error, "connection refused")
}

func TestStatus_SharedBudget(t *testing.T) {
	window := time.Unix(1700000000, 0).UTC()
	budget := &fakeBudget{
		shared: true,
		state:  ratelimit.State{WindowStart: window, Requests: 7, Budget: 50},
	}

	rec := httptest.NewRecorder()
	NewServer(readySource(t), WithRateLimit(budget)).Handler().
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got statusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, dataset.StateReady, got.State)
	require.NotNil(t, got.RateLimit)
	assert.Equal(t, int64(7), got.RateLimit.Requests)
	assert.Equal(t, 50, got.RateLimit.Budget)
	assert.Equal(t, int64(43), got.RateLimit.Remaining)
	assert.False(t, got.RateLimit.Exhausted)
	assert.True(t, window.Equal(got.RateLimit.WindowStart))
}

func TestStatus_WithoutSharedBudget(t *testing.T) {
	tests := []struct {
		name   string
		budget *fakeBudget
	}{
		{"local limit only", &fakeBudget{shared: false}},
		{"redis error", &fakeBudget{shared: true, err: errors.New("connection refused")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewServer(readySource(t), WithRateLimit(tt.budget), WithLogger(zerolog.Nop())).Handler().
				ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
			require.Equal(t, http.StatusOK, rec.Code)
			assert.NotContains(t, rec.Body.String(), "rate_limit")
		})
	}
}

func TestStats(t *testing.T) {
	rec := do(t, readySource(t), "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var got stats.Stats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, stats.Compute(sampleRecords()), got)
}

func TestTypes(t *testing.T) {
	rec := do(t, readySource(t), "/api/types")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, []string{"electric", "grass", "poison"}, got)
}

func TestListPokemon(t *testing.T) {
	tests := []struct {
		name  string
		query string
		ids   []int
	}{
		{"all", "", []int{1, 25, 101}},
		{"search", "?search=PIKA", []int{25}},
		{"type", "?type=electric", []int{25, 101}},
		{"min weight", "?min_weight=100", []int{101}},
		{"conjunction", "?search=e&type=electric&min_weight=61", []int{101}},
		{"no match", "?search=mew", []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, readySource(t), "/api/pokemon"+tt.query)
			require.Equal(t, http.StatusOK, rec.Code)

			var body listResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))

			ids := []int{}
			for _, r := range body.Records {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.ids, ids)
			assert.Equal(t, 3, body.Total)
			assert.Equal(t, len(tt.ids), body.Shown)
		})
	}
}

func TestListPokemon_BadCriteria(t *testing.T) {
	rec := do(t, readySource(t), "/api/pokemon?min_weight=-1")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"bad_request"`)
}

func TestGetPokemon(t *testing.T) {
	rec := do(t, readySource(t), "/api/pokemon/25")
	require.Equal(t, http.StatusOK, rec.Code)

	var got pokemon.Record
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "pikachu", got.Name)
	assert.NotContains(t, rec.Body.String(), "sprite")

	assert.Equal(t, http.StatusNotFound, do(t, readySource(t), "/api/pokemon/150").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, readySource(t), "/api/pokemon/pikachu").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, readySource(t), "/api/pokemon/0").Code)
}

func TestAPI_NotReadyStates(t *testing.T) {
	endpoints := []string{"/api/stats", "/api/types", "/api/pokemon", "/api/pokemon/1"}

	for _, endpoint := range endpoints {
		t.Run(endpoint, func(t *testing.T) {
			rec := do(t, loadingSource(), endpoint)
			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
			assert.Contains(t, rec.Body.String(), `"code":"loading"`)
			assert.Equal(t, "1", rec.Header().Get("Retry-After"))

			rec = do(t, failedSource(), endpoint)
			assert.Equal(t, http.StatusBadGateway, rec.Code)
			assert.Contains(t, rec.Body.String(), `"code":"load_failed"`)
			assert.Contains(t, rec.Body.String(), "connection refused")
		})
	}
}

func TestDashboard_Ready(t *testing.T) {
	rec := do(t, readySource(t), "/?type=electric")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "Showing 2 of 3 Pokemon")
	assert.Contains(t, body, "pikachu")
	assert.Contains(t, body, "electrode")
	assert.NotContains(t, body, "bulbasaur")
	assert.Contains(t, body, `<option value="electric" selected>Electric</option>`)
	assert.Contains(t, body, "<option value=\"poison\">Poison</option>")
	assert.Contains(t, body, "66.6 kg")
	assert.Contains(t, body, "Speed &ge; 100")
	assert.NotContains(t, body, "No Pokemon found")
}

func TestDashboard_TypeLinks(t *testing.T) {
	rec := do(t, readySource(t), "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/?type=electric"`)
	assert.Contains(t, rec.Body.String(), `href="/?type=poison"`)

	// other criteria are kept
	rec = do(t, readySource(t), "/?min_weight=50")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/?min_weight=50&amp;type=electric"`)
}

func TestDashboard_OffStepMinWeight(t *testing.T) {
	rec := do(t, readySource(t), "/?min_weight=75")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `<option value="75" selected>7.5 kg</option>`)
	assert.Equal(t, 1, strings.Count(body, "selected>7.5 kg"))
	assert.Contains(t, body, `<option value="50">5.0 kg</option>`)
	assert.Contains(t, body, `<option value="100">10.0 kg</option>`)
	assert.Less(t, strings.Index(body, `value="50"`), strings.Index(body, `value="75"`))
	assert.Less(t, strings.Index(body, `value="75"`), strings.Index(body, `value="100"`))
}

func TestDashboard_InvalidCriteriaFallsBack(t *testing.T) {
	var logs bytes.Buffer
	logger := zerolog.New(&logs).Level(zerolog.DebugLevel)

	rec := httptest.NewRecorder()
	NewServer(readySource(t), WithLogger(logger)).Handler().
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?min_weight=heavy", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Showing 3 of 3 Pokemon")
	assert.Contains(t, logs.String(), `"level":"debug"`)
	assert.Contains(t, logs.String(), "Invalid criteria")
	assert.Contains(t, logs.String(), "min_weight=heavy")
}

func TestDashboard_Empty(t *testing.T) {
	rec := do(t, readySource(t), "/?search=missingno")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Showing 0 of 3 Pokemon")
	assert.Contains(t, body, "No Pokemon found matching your filters")
}

func TestDashboard_EscapesInput(t *testing.T) {
	rec := do(t, readySource(t), "/?search=%3Cscript%3E")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<script>")
}

func TestDashboard_Loading(t *testing.T) {
	rec := do(t, loadingSource(), "/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Refresh"))
	assert.Contains(t, rec.Body.String(), "Loading Pokemon data...")
}

func TestDashboard_Failed(t *testing.T) {
	rec := do(t, failedSource(), "/")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Empty(t, rec.Header().Get("Refresh"))

	body := rec.Body.String()
	assert.Contains(t, body, "could not be loaded")
	assert.Contains(t, body, "connection refused")
	assert.Contains(t, body, "failed-load")
	assert.NotContains(t, body, "Loading Pokemon data...")
}

func TestUnknownRoute(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, do(t, readySource(t), "/nope").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	server := httptest.NewServer(NewServer(readySource(t)).Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/stats")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `pokedash_http_requests_total{endpoint="stats",method="GET",status="200"}`))
}
