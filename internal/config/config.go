// Package config defines the pokedash process configuration.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/Sternrassler/pokedash/pkg/batch"
	"github.com/Sternrassler/pokedash/pkg/client"
	"github.com/Sternrassler/pokedash/pkg/filter"
	"github.com/Sternrassler/pokedash/pkg/logging"
	"github.com/Sternrassler/pokedash/pkg/ratelimit"
)

// Mode selects what the process does after loading.
type Mode string

const (
	// ModeServe runs the HTTP dashboard.
	ModeServe Mode = "serve"

	// ModePrint loads once, prints the dashboard to stdout and exits.
	ModePrint Mode = "print"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogPretty switches to console output instead of JSON.
	LogPretty bool `koanf:"log_pretty"`

	// Mode is serve or print.
	Mode Mode `koanf:"mode"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// BaseURL is the PokeAPI root.
	BaseURL string `koanf:"base_url"`

	// UserAgent is sent with every PokeAPI request.
	UserAgent string `koanf:"user_agent"`

	// FirstID and LastID bound the inclusive id range to load.
	FirstID int `koanf:"first_id"`
	LastID  int `koanf:"last_id"`

	// MaxConcurrency bounds parallel PokeAPI requests.
	MaxConcurrency int `koanf:"max_concurrency"`

	// RequestTimeout applies to each PokeAPI request.
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// RateLimit is the local request rate per second (0 disables pacing).
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`

	// RedisAddr enables the shared per-second budget when set.
	RedisAddr string `koanf:"redis_addr"`

	// SharedBudget is the per-second request budget across processes.
	SharedBudget int `koanf:"shared_budget"`

	// Search, Type and MinWeight filter the print mode listing.
	Search    string `koanf:"search"`
	Type      string `koanf:"type"`
	MinWeight int    `koanf:"min_weight"`
}

// New returns a Config populated with defaults.
func New() *Config {
	rl := ratelimit.DefaultConfig()

	return &Config{
		LogLevel:       string(logging.LevelInfo),
		Mode:           ModeServe,
		Addr:           ":8080",
		BaseURL:        client.DefaultBaseURL,
		UserAgent:      "pokedash/0.1.0",
		FirstID:        1,
		LastID:         150,
		MaxConcurrency: batch.DefaultConfig().MaxConcurrency,
		RequestTimeout: 15 * time.Second,
		RateLimit:      rl.RequestsPerSecond,
		RateBurst:      rl.Burst,
		SharedBudget:   rl.SharedBudget,
		Type:           filter.AllTypes,
	}
}

// Validate checks the configuration. Every error wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	switch c.Mode {
	case ModeServe:
		if c.Addr == "" {
			return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
		}
	case ModePrint:
	default:
		return fmt.Errorf("%w: mode must be %q or %q (got %q)", ErrInvalidConfig, ModeServe, ModePrint, c.Mode)
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: base_url must be an http(s) URL (got %q)", ErrInvalidConfig, c.BaseURL)
	}

	if c.UserAgent == "" {
		return fmt.Errorf("%w: user_agent must not be empty", ErrInvalidConfig)
	}

	if err := c.Range().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if c.MaxConcurrency < 1 {
		return fmt.Errorf("%w: max_concurrency must be >= 1 (got %d)", ErrInvalidConfig, c.MaxConcurrency)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("%w: request_timeout must be >= 0 (got %s)", ErrInvalidConfig, c.RequestTimeout)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: rate_limit must be >= 0 (got %g)", ErrInvalidConfig, c.RateLimit)
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return fmt.Errorf("%w: rate_burst must be >= 1 (got %d)", ErrInvalidConfig, c.RateBurst)
	}
	if c.RedisAddr != "" && c.SharedBudget < 1 {
		return fmt.Errorf("%w: shared_budget must be >= 1 with redis_addr set (got %d)", ErrInvalidConfig, c.SharedBudget)
	}

	if c.MinWeight < 0 {
		return fmt.Errorf("%w: min_weight must be >= 0 (got %d)", ErrInvalidConfig, c.MinWeight)
	}

	return nil
}

// Range returns the configured id range.
func (c *Config) Range() batch.Range {
	return batch.Range{First: c.FirstID, Last: c.LastID}
}

// Criteria returns the print mode filter.
func (c *Config) Criteria() filter.Criteria {
	t := c.Type
	if t == "" {
		t = filter.AllTypes
	}
	return filter.Criteria{Search: c.Search, Type: t, MinWeight: c.MinWeight}
}

// Logging returns the logger configuration.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.LogLevel)
	cfg.Pretty = c.LogPretty
	return cfg
}
