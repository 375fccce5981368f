package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/pokedash/internal/config"
	"github.com/Sternrassler/pokedash/internal/view"
	"github.com/Sternrassler/pokedash/pkg/batch"
	"github.com/Sternrassler/pokedash/pkg/client"
	"github.com/Sternrassler/pokedash/pkg/dataset"
	"github.com/Sternrassler/pokedash/pkg/logging"
	"github.com/Sternrassler/pokedash/pkg/ratelimit"
	"github.com/Sternrassler/pokedash/pkg/stats"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pokedash: %v\n", err)
		os.Exit(2)
	}

	logging.Setup(cfg.Logging())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout); err != nil {
		log.Error().Err(err).Msg("pokedash failed")
		stop()
		os.Exit(1)
	}
}

// run wires the dashboard and executes the configured mode until ctx ends
// (serve) or the listing is written to out (print).
func run(ctx context.Context, cfg *config.Config, out io.Writer) error {
	redisClient := connectRedis(ctx, cfg.RedisAddr)
	if redisClient != nil {
		defer redisClient.Close()
	}

	tracker := ratelimit.NewTracker(ratelimit.Config{
		RequestsPerSecond: cfg.RateLimit,
		Burst:             cfg.RateBurst,
		Redis:             redisClient,
		SharedBudget:      cfg.SharedBudget,
	}, logging.NewLogger("ratelimit"))

	pokeClient, err := client.New(client.Config{
		BaseURL:   cfg.BaseURL,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.RequestTimeout,
		Limiter:   tracker,
	})
	if err != nil {
		return fmt.Errorf("create PokeAPI client: %w", err)
	}
	defer pokeClient.Close()

	fetcher := batch.NewFetcher(batch.SourceFunc(pokeClient.FetchPokemon), batch.Config{
		MaxConcurrency: cfg.MaxConcurrency,
	})
	data := dataset.New(fetcher, cfg.Range())

	switch cfg.Mode {
	case config.ModePrint:
		return printDashboard(ctx, data, cfg, out)
	default:
		return serve(ctx, data, tracker, cfg.Addr)
	}
}

// connectRedis returns a client for addr, or nil when addr is empty. An
// unreachable server is logged and still returned; the shared budget then
// fails open.
func connectRedis(ctx context.Context, addr string) *redis.Client {
	if addr == "" {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("redis_addr", addr).Msg("Redis unreachable, shared request budget disabled until it recovers")
	} else {
		log.Info().Str("redis_addr", addr).Msg("Connected to Redis")
	}
	return rdb
}

func printDashboard(ctx context.Context, data *dataset.Dataset, cfg *config.Config, out io.Writer) error {
	snap, err := data.Load(ctx)
	if err != nil {
		return fmt.Errorf("load pokemon: %w", err)
	}
	return view.RenderText(out, snap, stats.Compute(snap.Records), cfg.Criteria())
}

func serve(ctx context.Context, data *dataset.Dataset, tracker *ratelimit.Tracker, addr string) error {
	loadCtx, cancelLoad := context.WithCancel(ctx)
	defer cancelLoad()

	go func() {
		// the outcome is recorded on data and surfaced by the view
		_, _ = data.Load(loadCtx)
	}()

	srv := &http.Server{
		Addr:              addr,
		Handler:           view.NewServer(data, view.WithRateLimit(tracker)).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Starting dashboard server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down dashboard server")
	cancelLoad()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	<-data.Done()
	return nil
}
