package batch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidRange is returned for a range with First < 1 or Last < First.
var ErrInvalidRange = errors.New("invalid id range")

// progressEvery controls how often progress is logged.
const progressEvery = 50

// Config holds batch fetcher configuration.
type Config struct {
	// MaxConcurrency is the maximum number of parallel requests
	MaxConcurrency int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 10,
	}
}

// Source fetches the raw body for one identifier.
// *client.Client satisfies it through SourceFunc(c.FetchPokemon).
type Source interface {
	Fetch(ctx context.Context, id int) ([]byte, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, id int) ([]byte, error)

// Fetch calls f(ctx, id).
func (f SourceFunc) Fetch(ctx context.Context, id int) ([]byte, error) {
	return f(ctx, id)
}

// Range is an inclusive range of identifiers.
type Range struct {
	First int
	Last  int
}

// Len returns the number of identifiers in r.
func (r Range) Len() int {
	if r.Last < r.First {
		return 0
	}
	return r.Last - r.First + 1
}

// Validate reports whether r can be fetched.
func (r Range) Validate() error {
	if r.First < 1 {
		return fmt.Errorf("%w: first id must be >= 1 (got %d)", ErrInvalidRange, r.First)
	}
	if r.Last < r.First {
		return fmt.Errorf("%w: last id %d is before first id %d", ErrInvalidRange, r.Last, r.First)
	}
	return nil
}

// Result is the raw response for one identifier.
type Result struct {
	ID   int
	Body []byte
}

// BatchError reports the request that failed the batch.
type BatchError struct {
	ID  int
	Err error
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	return fmt.Sprintf("fetch pokemon %d: %v", e.ID, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *BatchError) Unwrap() error {
	return e.Err
}

// Fetcher fetches identifier ranges in parallel.
type Fetcher struct {
	source Source
	config Config
}

// NewFetcher creates a new fetcher. A non-positive MaxConcurrency falls back
// to the default.
func NewFetcher(source Source, config Config) *Fetcher {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = DefaultConfig().MaxConcurrency
	}

	return &Fetcher{
		source: source,
		config: config,
	}
}

// FetchRange fetches every identifier in r and returns the results ordered by
// identifier. Any single failure fails the whole batch with a *BatchError and
// cancels the requests still in flight.
func (f *Fetcher) FetchRange(ctx context.Context, r Range) ([]Result, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	total := r.Len()

	log.Info().
		Int("first", r.First).
		Int("last", r.Last).
		Int("workers", f.config.MaxConcurrency).
		Msg("Starting batch fetch")

	// Each worker writes only its own slot.
	results := make([]Result, total)
	var fetched atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.config.MaxConcurrency)

	for id := r.First; id <= r.Last; id++ {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			body, err := f.source.Fetch(gctx, id)
			if err != nil {
				// requests cancelled by an earlier failure are not logged
				if gctx.Err() == nil {
					log.Warn().Err(err).Int("id", id).Msg("Fetch failed")
				}
				return &BatchError{ID: id, Err: err}
			}

			results[id-r.First] = Result{ID: id, Body: body}

			if n := fetched.Add(1); n%progressEvery == 0 {
				log.Info().
					Int64("fetched", n).
					Int("total", total).
					Float64("progress_pct", float64(n)/float64(total)*100).
					Msg("Fetch progress")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error().
			Err(err).
			Int64("fetched", fetched.Load()).
			Int("total", total).
			Dur("duration", time.Since(start)).
			Msg("Batch fetch failed")
		return nil, err
	}

	// The loop may have stopped early on a cancelled parent context without
	// any worker observing it.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Info().
		Int("records", total).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")

	return results, nil
}
