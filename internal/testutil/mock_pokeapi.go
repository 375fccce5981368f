// Package testutil provides testing utilities for the PokeAPI client and dashboard.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for one mocked /pokemon/{id} response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockPokeAPI is a configurable PokeAPI stand-in serving /pokemon/{id}.
// Ids without an explicit response get a generated, valid body.
type MockPokeAPI struct {
	server    *httptest.Server
	mu        sync.Mutex
	responses map[int]MockResponse
	delay     time.Duration

	requestCount  int
	inFlight      int
	maxInFlight   int
	lastUserAgent string
	requestedIDs  []int
}

// NewMockPokeAPI starts a new mock server.
func NewMockPokeAPI() *MockPokeAPI {
	mock := &MockPokeAPI{
		responses: make(map[int]MockResponse),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the base URL to configure the client with (no trailing slash).
func (m *MockPokeAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockPokeAPI) Close() {
	m.server.Close()
}

// SetResponse configures the response for one id.
func (m *MockPokeAPI) SetResponse(id int, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[id] = resp
}

// SetPokemon serves body with 200 OK for id.
func (m *MockPokeAPI) SetPokemon(id int, body string) {
	m.SetResponse(id, NewHealthyResponse(body))
}

// SetFailure makes id answer with the given status code.
func (m *MockPokeAPI) SetFailure(id int, status int) {
	m.SetResponse(id, MockResponse{
		StatusCode: status,
		Body:       http.StatusText(status),
	})
}

// SetDelay adds a delay to every response, used to observe concurrency.
func (m *MockPokeAPI) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// RequestCount returns the number of requests served.
func (m *MockPokeAPI) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount
}

// MaxInFlight returns the highest number of concurrent requests observed.
func (m *MockPokeAPI) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

// LastUserAgent returns the User-Agent of the most recent request.
func (m *MockPokeAPI) LastUserAgent() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastUserAgent
}

// RequestedIDs returns the ids requested so far, in arrival order.
func (m *MockPokeAPI) RequestedIDs() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.requestedIDs...)
}

func (m *MockPokeAPI) handle(w http.ResponseWriter, r *http.Request) {
	idStr, ok := strings.CutPrefix(strings.TrimSuffix(r.URL.Path, "/"), "/pokemon/")
	id, err := strconv.Atoi(idStr)
	if !ok || err != nil {
		http.NotFound(w, r)
		return
	}

	m.mu.Lock()
	m.requestCount++
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	m.lastUserAgent = r.UserAgent()
	m.requestedIDs = append(m.requestedIDs, id)
	resp, custom := m.responses[id]
	delay := m.delay
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if !custom {
		resp = NewHealthyResponse(PokemonJSON(DefaultPokemon(id)))
	}
	if resp.Delay > delay {
		delay = resp.Delay
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewHealthyResponse creates a 200 OK JSON response.
func NewHealthyResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"Retry-After": "1",
		},
	}
}

// Pokemon describes a fixture rendered by PokemonJSON.
type Pokemon struct {
	ID      int
	Name    string
	Types   []string
	Height  int
	Weight  int
	HP      int
	Attack  int
	Defense int
	Speed   int
	Sprite  string

	// OmitStats drops the named stats from the rendered body.
	OmitStats []string
}

// DefaultPokemon returns a deterministic fixture for id.
func DefaultPokemon(id int) Pokemon {
	return Pokemon{
		ID:      id,
		Name:    fmt.Sprintf("pokemon-%d", id),
		Types:   []string{"normal"},
		Height:  10,
		Weight:  100 + id,
		HP:      40 + id%50,
		Attack:  50,
		Defense: 45,
		Speed:   60,
		Sprite:  fmt.Sprintf("https://example.test/sprites/%d.png", id),
	}
}

// PokemonJSON renders p in the PokeAPI /pokemon/{id} response shape.
func PokemonJSON(p Pokemon) string {
	type named struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	type typeSlot struct {
		Slot int   `json:"slot"`
		Type named `json:"type"`
	}
	type stat struct {
		BaseStat int   `json:"base_stat"`
		Effort   int   `json:"effort"`
		Stat     named `json:"stat"`
	}

	omit := make(map[string]bool, len(p.OmitStats))
	for _, s := range p.OmitStats {
		omit[s] = true
	}

	types := make([]typeSlot, 0, len(p.Types))
	for i, t := range p.Types {
		types = append(types, typeSlot{Slot: i + 1, Type: named{Name: t, URL: "https://pokeapi.co/api/v2/type/" + t + "/"}})
	}

	stats := make([]stat, 0, 6)
	for _, s := range []struct {
		name  string
		value int
	}{
		{"hp", p.HP},
		{"attack", p.Attack},
		{"defense", p.Defense},
		{"special-attack", 65},
		{"special-defense", 65},
		{"speed", p.Speed},
	} {
		if omit[s.name] {
			continue
		}
		stats = append(stats, stat{BaseStat: s.value, Stat: named{Name: s.name, URL: "https://pokeapi.co/api/v2/stat/" + s.name + "/"}})
	}

	var sprite *string
	if p.Sprite != "" {
		sprite = &p.Sprite
	}

	body := map[string]any{
		"id":     p.ID,
		"name":   p.Name,
		"height": p.Height,
		"weight": p.Weight,
		"types":  types,
		"stats":  stats,
		"sprites": map[string]any{
			"front_default": sprite,
			"back_default":  nil,
		},
		"base_experience": 64,
	}

	data, err := json.Marshal(body)
	if err != nil {
		panic(fmt.Sprintf("marshal pokemon fixture: %v", err))
	}
	return string(data)
}
