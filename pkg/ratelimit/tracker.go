package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for request pacing.
var (
	rateLimitWaitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokeapi_rate_limit_waits_total",
		Help: "Total number of times a request had to wait, by limiter",
	}, []string{"limiter"})

	rateLimitWindowRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pokeapi_rate_limit_window_requests",
		Help: "Requests admitted in the current shared one-second window",
	})

	rateLimitRedisErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pokeapi_rate_limit_redis_errors_total",
		Help: "Total number of shared budget operations that failed against Redis",
	})
)

// Config holds the tracker configuration.
type Config struct {
	// RequestsPerSecond for the local token bucket (<= 0 disables local pacing)
	RequestsPerSecond float64

	// Burst size of the local token bucket
	Burst int

	// Redis enables the shared budget when non-nil
	Redis *redis.Client

	// SharedBudget is the per-second request budget across all processes
	SharedBudget int
}

// DefaultConfig returns a polite default for the public PokeAPI.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 20,
		Burst:             10,
		SharedBudget:      50,
	}
}

// Tracker gates outbound requests.
type Tracker struct {
	limiter *rate.Limiter
	redis   *redis.Client
	budget  int
	logger  zerolog.Logger
	now     func() time.Time
}

// NewTracker creates a new tracker.
func NewTracker(cfg Config, logger zerolog.Logger) *Tracker {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	t := &Tracker{
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
		now:     time.Now,
	}
	if cfg.Redis != nil && cfg.SharedBudget > 0 {
		t.redis = cfg.Redis
		t.budget = cfg.SharedBudget
	}
	return t
}

// Shared reports whether a shared Redis budget is active.
func (t *Tracker) Shared() bool {
	return t.redis != nil
}

// Wait blocks until a request may be sent or ctx is done.
// Redis failures fail open: the local limiter still applies.
func (t *Tracker) Wait(ctx context.Context) error {
	if t.limiter.Limit() != rate.Inf && t.limiter.Tokens() < 1 {
		rateLimitWaitsTotal.WithLabelValues("local").Inc()
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for local limiter: %w", err)
	}

	if t.redis == nil {
		return nil
	}

	for {
		allowed, wait, err := t.reserveShared(ctx)
		if err != nil {
			rateLimitRedisErrorsTotal.Inc()
			t.logger.Warn().Err(err).Msg("Shared budget unavailable, continuing with local limit only")
			return nil
		}
		if allowed {
			return nil
		}

		rateLimitWaitsTotal.WithLabelValues("shared").Inc()
		t.logger.Debug().
			Int("budget", t.budget).
			Dur("wait", wait).
			Msg("Shared budget exhausted, waiting for next window")

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for shared budget: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
}

// reserveShared counts one request against the current window.
func (t *Tracker) reserveShared(ctx context.Context) (bool, time.Duration, error) {
	now := t.now()
	key := windowKey(now)

	pipe := t.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, windowExpiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("reserve shared budget: %w", err)
	}

	count := incr.Val()
	rateLimitWindowRequests.Set(float64(count))

	if count <= int64(t.budget) {
		return true, 0, nil
	}
	return false, untilNextWindow(now), nil
}

// GetState returns the shared window usage. Without Redis it returns a zero
// budget state.
func (t *Tracker) GetState(ctx context.Context) (State, error) {
	now := t.now()
	state := State{
		WindowStart: time.Unix(now.Unix(), 0),
		Budget:      t.budget,
	}
	if t.redis == nil {
		return state, nil
	}

	count, err := t.redis.Get(ctx, windowKey(now)).Int64()
	if err != nil && err != redis.Nil {
		return State{}, fmt.Errorf("get window count: %w", err)
	}
	state.Requests = count
	return state, nil
}
