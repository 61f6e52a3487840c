// Package router configures the predictor's HTTP API.
//
// Routes configured:
//   - POST /v1/estimate - Price a car's value trajectory
//   - POST /v1/compare/brands - Compare the car against competitor brands
//   - POST /v1/compare/fuel-types - Compare the car across fuel types
//   - GET /v1/options - List selectable filter values
//   - GET /healthz - Health check endpoint (returns 200 OK)
//   - GET /metrics - Prometheus metrics endpoint
//
// Validation failures map to 400, gateway and model failures to 502 and
// anything unrecognized to a generic 500. Responses carry values both as
// numbers and as display strings with thousands separators.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zikzero/carvalue/cmd/predictor/pipeline"
	"github.com/zikzero/carvalue/pkg/httpx"
	"github.com/zikzero/carvalue/pkg/options"
	"github.com/zikzero/carvalue/pkg/validate"
	"github.com/zikzero/carvalue/pkg/vehicle"
)

// SetupRoutes configures HTTP endpoints for the predictor.
func SetupRoutes(p *pipeline.Pipeline, opts *options.Options, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /healthz", httpx.HealthHandler())
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/options", func(w http.ResponseWriter, r *http.Request) {
		if err := httpx.WriteJSON(w, http.StatusOK, opts); err != nil {
			logger.Error("failed to write options response", "error", err)
		}
	})

	mux.HandleFunc("POST /v1/estimate", handleEstimate(p, logger))
	mux.HandleFunc("POST /v1/compare/brands", handleCompare(p, opts, compareBrands, logger))
	mux.HandleFunc("POST /v1/compare/fuel-types", handleCompare(p, opts, compareFuelTypes, logger))

	return mux
}

// estimateRequest is the JSON body of every estimation endpoint.
type estimateRequest struct {
	FuelType         string `json:"fuel_type"`
	Brand            string `json:"brand"`
	Segment          string `json:"segment"`
	BodyType         string `json:"body_type"`
	CurrentAge       int    `json:"current_age"`
	CurrentKM        int    `json:"current_km"`
	ExpectedAnnualKM int    `json:"expected_annual_km"`
}

func (r estimateRequest) validate() error {
	if r.CurrentAge < 0 || r.CurrentKM < 0 || r.ExpectedAnnualKM < 0 {
		return errors.New("age and mileage must be non-negative")
	}
	return nil
}

func (r estimateRequest) features() vehicle.Features {
	return vehicle.Features{
		FuelType: r.FuelType,
		Brand:    r.Brand,
		Segment:  r.Segment,
		BodyType: r.BodyType,
	}
}

type rowResponse struct {
	Age                         int     `json:"age"`
	KM                          int     `json:"km"`
	Value                       float64 `json:"value"`
	ValueDisplay                string  `json:"value_display"`
	Depreciation                float64 `json:"depreciation"`
	DepreciationDisplay         string  `json:"depreciation_display"`
	DepreciationPct             float64 `json:"depreciation_pct"`
	DepreciationPctDisplay      string  `json:"depreciation_pct_display"`
	AccumDepreciationPct        float64 `json:"accum_depreciation_pct"`
	AccumDepreciationPctDisplay string  `json:"accum_depreciation_pct_display"`
}

type estimateResponse struct {
	ModelVersion string        `json:"model_version"`
	AvgKMPerYear int           `json:"avg_km_per_year"`
	Rows         []rowResponse `json:"rows"`
}

type seriesResponse struct {
	Label string        `json:"label"`
	Rows  []rowResponse `json:"rows"`
}

type summaryResponse struct {
	Brand                  string          `json:"brand"`
	InitialValue           float64         `json:"initial_value"`
	InitialValueDisplay    string          `json:"initial_value_display"`
	AvgDepreciation        float64         `json:"avg_depreciation"`
	AvgDepreciationDisplay string          `json:"avg_depreciation_display"`
	AvgDepreciationPct     float64         `json:"avg_depreciation_pct"`
	ValueAtAge             map[int]float64 `json:"value_at_age"`
}

type compareResponse struct {
	ModelVersion string            `json:"model_version"`
	Series       []seriesResponse  `json:"series"`
	Summaries    []summaryResponse `json:"summaries,omitempty"`
}

func handleEstimate(p *pipeline.Pipeline, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body estimateRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := body.validate(); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err)
			return
		}

		result, err := p.Estimate(r.Context(), pipeline.EstimateRequest{
			Features:         body.features(),
			CurrentAge:       body.CurrentAge,
			CurrentKM:        body.CurrentKM,
			ExpectedAnnualKM: body.ExpectedAnnualKM,
		})
		if err != nil {
			writeTaxonomyError(w, r.Context(), err, logger)
			return
		}

		resp := estimateResponse{
			ModelVersion: result.ModelVersion,
			AvgKMPerYear: result.Trajectory.AvgKMPerYear,
			Rows:         rowResponses(result.Rows),
		}
		if err := httpx.WriteJSON(w, http.StatusOK, resp); err != nil {
			logger.Error("failed to write estimate response", "error", err)
		}
	}
}

type compareFunc func(*pipeline.Pipeline, context.Context, pipeline.CompareRequest) (*pipeline.CompareResult, error)

func compareBrands(p *pipeline.Pipeline, ctx context.Context, req pipeline.CompareRequest) (*pipeline.CompareResult, error) {
	return p.CompareBrands(ctx, req)
}

func compareFuelTypes(p *pipeline.Pipeline, ctx context.Context, req pipeline.CompareRequest) (*pipeline.CompareResult, error) {
	return p.CompareFuelTypes(ctx, req)
}

func handleCompare(p *pipeline.Pipeline, opts *options.Options, run compareFunc, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body estimateRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := body.validate(); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err)
			return
		}

		candidates := opts.Brands
		if r.URL.Path == "/v1/compare/fuel-types" {
			candidates = opts.FuelTypes
		}

		result, err := run(p, r.Context(), pipeline.CompareRequest{
			Features:         body.features(),
			CurrentAge:       body.CurrentAge,
			CurrentKM:        body.CurrentKM,
			ExpectedAnnualKM: body.ExpectedAnnualKM,
			Candidates:       candidates,
		})
		if err != nil {
			writeTaxonomyError(w, r.Context(), err, logger)
			return
		}

		resp := compareResponse{ModelVersion: result.ModelVersion}
		for _, s := range result.Series {
			resp.Series = append(resp.Series, seriesResponse{
				Label: s.Label,
				Rows:  rowResponses(s.Rows),
			})
		}
		for _, s := range result.Summaries {
			resp.Summaries = append(resp.Summaries, summaryResponse{
				Brand:                  s.Brand,
				InitialValue:           s.InitialValue,
				InitialValueDisplay:    euros(s.InitialValue),
				AvgDepreciation:        s.AvgDepreciation,
				AvgDepreciationDisplay: euros(s.AvgDepreciation),
				AvgDepreciationPct:     s.AvgDepreciationPct,
				ValueAtAge:             s.ValueAtAge,
			})
		}

		if err := httpx.WriteJSON(w, http.StatusOK, resp); err != nil {
			logger.Error("failed to write compare response", "error", err)
		}
	}
}

func rowResponses(rows []vehicle.DepreciationRow) []rowResponse {
	out := make([]rowResponse, len(rows))
	for i, row := range rows {
		out[i] = rowResponse{
			Age:                         row.Age,
			KM:                          row.KM,
			Value:                       row.Value,
			ValueDisplay:                euros(row.Value),
			Depreciation:                row.Depreciation,
			DepreciationDisplay:         euros(row.Depreciation),
			DepreciationPct:             row.DepreciationPct,
			DepreciationPctDisplay:      percent(row.DepreciationPct),
			AccumDepreciationPct:        row.AccumDepreciationPct,
			AccumDepreciationPctDisplay: percent(row.AccumDepreciationPct),
		}
	}
	return out
}

// euros formats a value with Spanish-style dot thousands separators.
// Whole euros only, so swapping the comma separator is unambiguous.
func euros(v float64) string {
	return strings.ReplaceAll(humanize.CommafWithDigits(v, 0), ",", ".") + " €"
}

func percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

// writeTaxonomyError maps pipeline errors onto HTTP status codes:
// validation failures are the caller's fault (400), gateway and model
// failures are upstream faults (502), everything else is a generic 500
// with no detail leaked.
func writeTaxonomyError(w http.ResponseWriter, ctx context.Context, err error, logger *slog.Logger) {
	var missing *validate.MissingFieldsError
	var shape *validate.ShapeMismatchError

	switch {
	case errors.Is(err, validate.ErrMissingSelection),
		errors.As(err, &missing),
		errors.As(err, &shape),
		errors.Is(err, validate.ErrEmptyInput),
		errors.Is(err, validate.ErrUnknownBrand):
		httpx.WriteError(w, http.StatusBadRequest, err)
	case errors.Is(err, validate.ErrModelNotFound),
		errors.Is(err, validate.ErrGatewayUnavailable),
		errors.Is(err, validate.ErrEmptyPrediction):
		httpx.WriteError(w, http.StatusBadGateway, err)
	default:
		logger.Error("unexpected pipeline error",
			"error", err,
			"request_id", httpx.RequestID(ctx),
		)
		httpx.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
	}
}
