// Package ratelimit paces outbound PokeAPI requests.
// A local token bucket always applies; with a Redis client the tracker also
// enforces a per-second request budget shared by every process using the
// same Redis instance.
package ratelimit

import (
	"fmt"
	"time"
)

// RedisKeyWindowPrefix prefixes the per-second shared budget counters.
// Full key format: pokedash:rate_limit:window:<unix seconds>
const RedisKeyWindowPrefix = "pokedash:rate_limit:window"

// windowExpiry keeps a window counter around slightly longer than its second.
const windowExpiry = 2 * time.Second

// State is a point-in-time view of the shared budget window.
type State struct {
	// WindowStart is the start of the current one-second window.
	WindowStart time.Time `json:"window_start"`

	// Requests is the number of requests admitted in this window by all processes.
	Requests int64 `json:"requests"`

	// Budget is the shared per-second budget (0 when no shared budget is configured).
	Budget int `json:"budget"`
}

// Remaining returns how many requests can still be admitted in this window.
// Returns -1 when there is no shared budget.
func (s State) Remaining() int64 {
	if s.Budget <= 0 {
		return -1
	}
	if left := int64(s.Budget) - s.Requests; left > 0 {
		return left
	}
	return 0
}

// Exhausted reports whether the shared budget for this window is used up.
func (s State) Exhausted() bool {
	return s.Budget > 0 && s.Requests >= int64(s.Budget)
}

// windowKey returns the Redis key for the window containing t.
func windowKey(t time.Time) string {
	return fmt.Sprintf("%s:%d", RedisKeyWindowPrefix, t.Unix())
}

// untilNextWindow returns the time left until the window after t begins.
func untilNextWindow(t time.Time) time.Duration {
	next := time.Unix(t.Unix()+1, 0)
	return next.Sub(t)
}
