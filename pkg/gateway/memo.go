package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/zikzero/carvalue/pkg/pricecache"
	"github.com/zikzero/carvalue/pkg/vehicle"
)

// MemoGateway memoizes an inner gateway's answers. Keys derive purely
// from the model version and the exact ordered observation list, so the
// comparison engine's many overlapping calls (per-brand age-0 probes,
// repeated submissions of the same filter selection) hit the cache
// instead of the model server.
//
// Memoization is an optimization, never a correctness requirement: any
// cache failure degrades to a direct gateway call.
type MemoGateway struct {
	inner  Gateway
	cache  pricecache.Cache
	logger *slog.Logger

	// OnHit and OnMiss, when set, are invoked once per lookup outcome.
	// Used to feed cache metrics without coupling this package to the
	// metrics registry.
	OnHit  func()
	OnMiss func()
}

// Memoized wraps gw with a prediction cache.
func Memoized(gw Gateway, cache pricecache.Cache, logger *slog.Logger) *MemoGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoGateway{inner: gw, cache: cache, logger: logger}
}

// ModelVersion returns the inner gateway's model version.
func (m *MemoGateway) ModelVersion() string {
	return m.inner.ModelVersion()
}

// Predict answers from the cache when possible, otherwise asks the inner
// gateway and stores the result.
func (m *MemoGateway) Predict(ctx context.Context, obs []vehicle.Observation) ([]float64, error) {
	key, err := cacheKey(m.inner.ModelVersion(), obs)
	if err != nil {
		// Not being able to derive a key only costs the memoization.
		m.logger.Warn("prediction cache key derivation failed", "error", err)
		return m.inner.Predict(ctx, obs)
	}

	prices, found, err := m.cache.Get(ctx, key)
	if err != nil {
		m.logger.Warn("prediction cache read failed", "error", err)
	}
	if found {
		if m.OnHit != nil {
			m.OnHit()
		}
		m.logger.Debug("prediction cache hit", "observations", len(obs))
		return prices, nil
	}
	if m.OnMiss != nil {
		m.OnMiss()
	}

	prices, err = m.inner.Predict(ctx, obs)
	if err != nil {
		return nil, err
	}

	if err := m.cache.Put(ctx, key, prices); err != nil {
		m.logger.Warn("prediction cache write failed", "error", err)
	}
	return prices, nil
}

// cacheKey digests the model version and the canonical JSON encoding of
// the ordered observation list. Struct field order is fixed, so identical
// inputs always produce identical keys.
func cacheKey(modelVersion string, obs []vehicle.Observation) (string, error) {
	encoded, err := json.Marshal(obs)
	if err != nil {
		return "", fmt.Errorf("encode observations: %w", err)
	}

	h := sha256.New()
	fmt.Fprintf(h, "%s\n", modelVersion)
	h.Write(encoded)
	return hex.EncodeToString(h.Sum(nil)), nil
}
