// Package gateway connects the valuation core to the external price
// estimation model. The model itself is a black box behind an HTTP
// contract: ordered observations in, an equal-length ordered price vector
// out, deterministic for identical input.
package gateway

import (
	"context"

	"github.com/zikzero/carvalue/pkg/vehicle"
)

// Gateway is the boundary the core depends on. Implementations must
// preserve input order and length, and be deterministic for identical
// input so results can be memoized.
type Gateway interface {
	// Predict returns one price estimate per observation, in input order.
	Predict(ctx context.Context, obs []vehicle.Observation) ([]float64, error)

	// ModelVersion identifies the model artifact answering predictions,
	// by its version-folder naming convention (e.g. "2026-02-03").
	ModelVersion() string
}
