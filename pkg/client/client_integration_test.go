//go:build integration

package client

import (
	"context"
	"testing"
	"time"

	"github.com/Sternrassler/pokedash/internal/testutil"
	"github.com/Sternrassler/pokedash/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestIntegration_FetchWithSharedBudget(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	mock := testutil.NewMockPokeAPI()
	defer mock.Close()

	tracker := ratelimit.NewTracker(ratelimit.Config{
		Redis:        redisClient,
		SharedBudget: 3,
	}, zerolog.Nop())

	cfg := DefaultConfig("TestApp/1.0.0 (integration)")
	cfg.BaseURL = mock.URL()
	cfg.Limiter = tracker

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	for id := 1; id <= 6; id++ {
		if _, err := client.FetchPokemon(ctx, id); err != nil {
			t.Fatalf("FetchPokemon(%d) error = %v", id, err)
		}
	}

	if mock.RequestCount() != 6 {
		t.Errorf("RequestCount = %d, want 6", mock.RequestCount())
	}

	// Six requests against a budget of three per second span at least one
	// window boundary.
	if elapsed := time.Since(start); elapsed < 500*time.Millisecond {
		t.Errorf("6 requests with a budget of 3/s finished in %v", elapsed)
	}
}

func TestIntegration_RedisDownFailsOpen(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	cleanup()

	mock := testutil.NewMockPokeAPI()
	defer mock.Close()

	tracker := ratelimit.NewTracker(ratelimit.Config{
		Redis:        redisClient,
		SharedBudget: 1,
	}, zerolog.Nop())

	cfg := DefaultConfig("TestApp/1.0.0 (integration)")
	cfg.BaseURL = mock.URL()
	cfg.Limiter = tracker

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for id := 1; id <= 3; id++ {
		if _, err := client.FetchPokemon(ctx, id); err != nil {
			t.Fatalf("FetchPokemon(%d) error = %v", id, err)
		}
	}
}
