package pricecache

import (
	"context"
	"sync"
)

// MemoryCache is an in-process, append-only prediction cache. It is safe
// for concurrent use by multiple goroutines.
//
// Entries are value-keyed and never expire; the working set is bounded by
// the distinct (features, trajectory) combinations a deployment sees,
// which is small in practice. Multi-instance deployments that want a
// shared cache should use RedisCache instead.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]float64
}

// NewMemoryCache creates an empty in-memory prediction cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]float64)}
}

// Get returns a copy of the cached prices so callers can't mutate the
// stored slice.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]float64, bool, error) {
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	default:
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	prices, found := c.entries[key]
	if !found {
		return nil, false, nil
	}
	out := make([]float64, len(prices))
	copy(out, prices)
	return out, true, nil
}

// Put stores a copy of prices under key.
func (c *MemoryCache) Put(ctx context.Context, key string, prices []float64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	stored := make([]float64, len(prices))
	copy(stored, prices)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = stored
	return nil
}

// Len returns the number of cached entries. Primarily useful for tests
// and metrics.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
