//go:build integration

package pricecache

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"
)

// setupRedisContainer starts a Redis container for testing
func setupRedisContainer(t *testing.T) string {
	t.Helper()

	ctx := context.Background()

	redisContainer, err := redis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}

	endpoint, err := redisContainer.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get redis endpoint: %v", err)
	}

	addr := endpoint
	if len(endpoint) > 8 && endpoint[:8] == "redis://" {
		addr = endpoint[8:]
	}

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(redisContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return addr
}

func TestRedisCache_Connect(t *testing.T) {
	addr := setupRedisContainer(t)

	cache, err := NewRedisCache(addr, "", 0, time.Minute)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer cache.Close()
}

func TestRedisCache_ConnectFailure(t *testing.T) {
	if _, err := NewRedisCache("localhost:1", "", 0, time.Minute); err == nil {
		t.Fatal("expected connection error, got nil")
	}
}

func TestRedisCache_PutGet(t *testing.T) {
	addr := setupRedisContainer(t)

	cache, err := NewRedisCache(addr, "", 0, time.Minute)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	defer cache.Close()

	ctx := context.Background()
	prices := []float64{20000, 18500, 17200.5}

	if err := cache.Put(ctx, "abc", prices); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, found, err := cache.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Fatal("stored prediction not found")
	}
	if len(got) != len(prices) {
		t.Fatalf("got %d prices, want %d", len(got), len(prices))
	}
	for i := range prices {
		if got[i] != prices[i] {
			t.Errorf("price[%d] = %v, want %v", i, got[i], prices[i])
		}
	}
}

func TestRedisCache_GetMissing(t *testing.T) {
	addr := setupRedisContainer(t)

	cache, err := NewRedisCache(addr, "", 0, time.Minute)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	defer cache.Close()

	_, found, err := cache.Get(context.Background(), "never-stored")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Error("missing key reported as found")
	}
}

func TestRedisCache_TTLExpiry(t *testing.T) {
	addr := setupRedisContainer(t)

	cache, err := NewRedisCache(addr, "", 0, time.Second)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	defer cache.Close()

	ctx := context.Background()
	if err := cache.Put(ctx, "short-lived", []float64{1, 2, 3}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	time.Sleep(1500 * time.Millisecond)

	_, found, err := cache.Get(ctx, "short-lived")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Error("entry survived past its TTL")
	}
}
