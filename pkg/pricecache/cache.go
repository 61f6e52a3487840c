// Package pricecache provides storage backends for memoized prediction
// results. The cache is keyed purely by input value (a digest of the model
// version and the ordered observation list), so entries never need
// invalidation while a process runs: the underlying model artifact is
// immutable for the process lifetime.
package pricecache

import "context"

// Cache stores predicted price vectors under value-derived keys.
//
// Implementations must be safe for concurrent use. A failed Get or Put is
// never fatal to a request: the caller falls back to asking the model
// directly.
type Cache interface {
	// Get returns the cached prices for key, a hit flag, and any backend
	// error. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]float64, bool, error)

	// Put stores prices under key, overwriting silently: identical keys
	// always carry identical values.
	Put(ctx context.Context, key string, prices []float64) error
}
