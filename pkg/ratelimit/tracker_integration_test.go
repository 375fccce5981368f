//go:build integration

package ratelimit

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
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

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestTracker_Integration_WindowExpires(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	tracker := NewTracker(Config{Redis: redisClient, SharedBudget: 5}, logger)
	ctx := context.Background()

	if err := tracker.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	key := windowKey(time.Now())
	ttl, err := redisClient.TTL(ctx, key).Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	// The key may belong to the previous second if the clock ticked; only
	// check the TTL when it exists.
	if ttl > 0 && ttl > windowExpiry {
		t.Errorf("window TTL = %v, want <= %v", ttl, windowExpiry)
	}
}

func TestTracker_Integration_BudgetSharedAcrossTrackers(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	const budget = 4

	// Two trackers stand in for two dashboard processes.
	a := NewTracker(Config{Redis: redisClient, SharedBudget: budget}, logger)
	b := NewTracker(Config{Redis: redisClient, SharedBudget: budget}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	const total = 3 * budget
	start := time.Now()

	var wg sync.WaitGroup
	errs := make(chan error, total)
	for i := 0; i < total; i++ {
		tracker := a
		if i%2 == 1 {
			tracker = b
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- tracker.Wait(ctx)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}

	// 12 requests at 4 per second across both trackers need at least two
	// window rollovers.
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("%d requests with a shared budget of %d/s finished in %v", total, budget, elapsed)
	}
}

func TestTracker_Integration_GetState(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	tracker := NewTracker(Config{Redis: redisClient, SharedBudget: 100}, logger)

	fixed := time.Unix(time.Now().Unix()+7200, 0)
	tracker.now = func() time.Time { return fixed }

	ctx := context.Background()
	for i := 0; i < 7; i++ {
		if err := tracker.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}

	state, err := tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Requests != 7 {
		t.Errorf("Requests = %d, want 7", state.Requests)
	}
	if state.Remaining() != 93 {
		t.Errorf("Remaining() = %d, want 93", state.Remaining())
	}
}
