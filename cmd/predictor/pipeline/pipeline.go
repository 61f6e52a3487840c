// Package pipeline implements the estimation pipeline orchestration.
//
// The Pipeline type runs the request-scoped estimation flow:
//
//	validate selection → compute trajectory → build observations →
//	validate payloads → predict → depreciation metrics
//
// and the brand / fuel-type comparison flows on top of the same
// primitives. Every operation is instrumented with Prometheus metrics
// for duration and errors, and returns typed errors the router maps to
// HTTP status codes.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/zikzero/carvalue/cmd/predictor/metrics"
	"github.com/zikzero/carvalue/pkg/gateway"
	"github.com/zikzero/carvalue/pkg/validate"
	"github.com/zikzero/carvalue/pkg/valuation"
	"github.com/zikzero/carvalue/pkg/vehicle"
)

// Pipeline runs predictions end to end for one request at a time. It
// holds no per-request state; the HTTP server calls it concurrently.
type Pipeline struct {
	gw         gateway.Gateway
	engine     *valuation.Engine
	milestones []int
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// New creates a Pipeline predicting through gw.
func New(gw gateway.Gateway, milestones []int, logger *slog.Logger, m *metrics.Metrics) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		gw:         gw,
		engine:     valuation.NewEngine(gw),
		milestones: milestones,
		logger:     logger,
		metrics:    m,
	}
}

// EstimateRequest describes one car to estimate.
type EstimateRequest struct {
	Features         vehicle.Features
	CurrentAge       int
	CurrentKM        int
	ExpectedAnnualKM int
}

// EstimateResult is a priced trajectory with depreciation metrics.
type EstimateResult struct {
	ModelVersion string
	Trajectory   valuation.Trajectory
	Rows         []vehicle.DepreciationRow
}

// Estimate prices the car's value trajectory. The selection is validated
// before anything else; an incomplete selection never reaches the
// gateway.
func (p *Pipeline) Estimate(ctx context.Context, req EstimateRequest) (*EstimateResult, error) {
	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.RecordPipeline("estimate", time.Since(start).Seconds())
		}
	}()

	if err := validate.Selection(req.Features); err != nil {
		p.recordError("estimate", err)
		return nil, err
	}

	traj, err := valuation.Compute(req.CurrentAge, req.CurrentKM, req.ExpectedAnnualKM)
	if err != nil {
		p.recordError("estimate", err)
		return nil, err
	}

	obs, err := valuation.BuildObservations(traj.Ages, traj.KMs, req.Features)
	if err != nil {
		p.recordError("estimate", err)
		return nil, err
	}
	if err := validate.Payloads(obs); err != nil {
		p.recordError("estimate", err)
		return nil, err
	}

	rows, err := p.engine.Price(ctx, obs)
	if err != nil {
		p.recordError("estimate", err)
		return nil, err
	}

	p.logger.Debug("estimate complete",
		"ages", len(traj.Ages),
		"initial_value", rows[0].Value,
	)

	return &EstimateResult{
		ModelVersion: p.gw.ModelVersion(),
		Trajectory:   traj,
		Rows:         rows,
	}, nil
}

// CompareRequest describes a comparison across one axis: the base car
// plus the candidate values the axis may take.
type CompareRequest struct {
	Features         vehicle.Features
	CurrentAge       int
	CurrentKM        int
	ExpectedAnnualKM int

	// Candidates are the selectable values on the comparison axis,
	// usually the filter options list.
	Candidates []string
}

// CompareResult holds one priced series per compared candidate.
// Summaries is populated for brand comparisons only.
type CompareResult struct {
	ModelVersion string
	Series       []vehicle.ComparisonSeries
	Summaries    []vehicle.BrandSummary
}

// CompareBrands prices the selected car against its closest-priced
// competitor brands.
func (p *Pipeline) CompareBrands(ctx context.Context, req CompareRequest) (*CompareResult, error) {
	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.RecordPipeline("compare_brands", time.Since(start).Seconds())
		}
	}()

	if err := validate.Selection(req.Features); err != nil {
		p.recordError("compare_brands", err)
		return nil, err
	}

	traj, err := valuation.Compute(req.CurrentAge, req.CurrentKM, req.ExpectedAnnualKM)
	if err != nil {
		p.recordError("compare_brands", err)
		return nil, err
	}

	series, err := p.engine.CompareBrands(ctx, req.Candidates, req.Features.Brand, req.Features, traj.Ages, traj.AvgKMPerYear)
	if err != nil {
		p.recordError("compare_brands", err)
		return nil, err
	}

	return &CompareResult{
		ModelVersion: p.gw.ModelVersion(),
		Series:       series,
		Summaries:    valuation.Summaries(series, p.milestones),
	}, nil
}

// CompareFuelTypes prices the selected car under each candidate fuel
// type, holding everything else fixed.
func (p *Pipeline) CompareFuelTypes(ctx context.Context, req CompareRequest) (*CompareResult, error) {
	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.RecordPipeline("compare_fuel_types", time.Since(start).Seconds())
		}
	}()

	if err := validate.Selection(req.Features); err != nil {
		p.recordError("compare_fuel_types", err)
		return nil, err
	}

	traj, err := valuation.Compute(req.CurrentAge, req.CurrentKM, req.ExpectedAnnualKM)
	if err != nil {
		p.recordError("compare_fuel_types", err)
		return nil, err
	}

	series, err := p.engine.CompareAcross(ctx, valuation.AxisFuelType, req.Candidates, req.Features, traj.Ages, valuation.KMPolicy{Explicit: traj.KMs})
	if err != nil {
		p.recordError("compare_fuel_types", err)
		return nil, err
	}

	return &CompareResult{
		ModelVersion: p.gw.ModelVersion(),
		Series:       series,
	}, nil
}

func (p *Pipeline) recordError(stage string, err error) {
	if p.metrics != nil {
		p.metrics.RecordError(stage, errorReason(err))
	}
	p.logger.Warn("pipeline error", "stage", stage, "error", err)
}

// errorReason buckets an error into a low-cardinality metric label.
func errorReason(err error) string {
	var missing *validate.MissingFieldsError
	var shape *validate.ShapeMismatchError

	switch {
	case errors.Is(err, validate.ErrMissingSelection):
		return "missing_selection"
	case errors.As(err, &missing):
		return "missing_fields"
	case errors.As(err, &shape):
		return "shape_mismatch"
	case errors.Is(err, validate.ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, validate.ErrUnknownBrand):
		return "unknown_brand"
	case errors.Is(err, validate.ErrEmptyPrediction):
		return "empty_prediction"
	case errors.Is(err, validate.ErrModelNotFound):
		return "model_not_found"
	case errors.Is(err, validate.ErrGatewayUnavailable):
		return "gateway_unavailable"
	default:
		return "internal"
	}
}

// timedGateway instruments gateway calls with the predict histogram.
type timedGateway struct {
	inner   gateway.Gateway
	metrics *metrics.Metrics
}

// TimedGateway wraps gw so every Predict call is observed by m.
func TimedGateway(gw gateway.Gateway, m *metrics.Metrics) gateway.Gateway {
	return &timedGateway{inner: gw, metrics: m}
}

func (g *timedGateway) ModelVersion() string { return g.inner.ModelVersion() }

func (g *timedGateway) Predict(ctx context.Context, obs []vehicle.Observation) ([]float64, error) {
	start := time.Now()
	prices, err := g.inner.Predict(ctx, obs)
	g.metrics.RecordGatewayPredict(time.Since(start).Seconds())
	return prices, err
}
