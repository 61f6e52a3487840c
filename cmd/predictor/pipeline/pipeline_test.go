package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/zikzero/carvalue/pkg/validate"
	"github.com/zikzero/carvalue/pkg/vehicle"
)

// stubGateway prices observations from a fixed per-brand base with a
// linear drop per year, and can be forced to fail.
type stubGateway struct {
	base  map[string]float64
	drop  float64
	err   error
	calls int
}

func (g *stubGateway) ModelVersion() string { return "test-model" }

func (g *stubGateway) Predict(_ context.Context, obs []vehicle.Observation) ([]float64, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	prices := make([]float64, len(obs))
	for i, o := range obs {
		base, ok := g.base[o.Brand]
		if !ok {
			base = 20000
		}
		prices[i] = base - float64(o.Age)*g.drop
	}
	return prices, nil
}

func testPipeline(gw *stubGateway) *Pipeline {
	return New(gw, []int{5, 10}, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

func fullSelection() vehicle.Features {
	return vehicle.Features{
		FuelType: "gasolina",
		Brand:    "seat",
		Segment:  "c",
		BodyType: "compacto",
	}
}

func TestEstimate(t *testing.T) {
	gw := &stubGateway{base: map[string]float64{"seat": 20000}, drop: 1500}
	p := testPipeline(gw)

	result, err := p.Estimate(context.Background(), EstimateRequest{
		Features:   fullSelection(),
		CurrentAge: 2,
		CurrentKM:  20000,
	})
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}

	if result.ModelVersion != "test-model" {
		t.Errorf("ModelVersion = %q", result.ModelVersion)
	}
	if got := len(result.Rows); got != 11 {
		t.Fatalf("got %d rows, want 11 (ages 0..10)", got)
	}
	if result.Trajectory.AvgKMPerYear != 10000 {
		t.Errorf("AvgKMPerYear = %d, want 10000", result.Trajectory.AvgKMPerYear)
	}
	if result.Rows[0].Value != 20000 {
		t.Errorf("age-0 value = %v, want 20000", result.Rows[0].Value)
	}
	if result.Rows[1].Depreciation != 1500 {
		t.Errorf("year-1 depreciation = %v, want 1500", result.Rows[1].Depreciation)
	}
}

func TestEstimate_SelectionValidatedBeforeGateway(t *testing.T) {
	gw := &stubGateway{}
	p := testPipeline(gw)

	f := fullSelection()
	f.Brand = ""
	_, err := p.Estimate(context.Background(), EstimateRequest{
		Features:   f,
		CurrentAge: 2,
		CurrentKM:  20000,
	})

	if !errors.Is(err, validate.ErrMissingSelection) {
		t.Fatalf("err = %v, want ErrMissingSelection", err)
	}
	if gw.calls != 0 {
		t.Errorf("gateway called %d times before validation, want 0", gw.calls)
	}
}

func TestEstimate_NegativeInputsRejected(t *testing.T) {
	gw := &stubGateway{}
	p := testPipeline(gw)

	_, err := p.Estimate(context.Background(), EstimateRequest{
		Features:   fullSelection(),
		CurrentAge: -1,
		CurrentKM:  20000,
	})
	if err == nil {
		t.Fatal("want error for negative age")
	}
	if gw.calls != 0 {
		t.Errorf("gateway called %d times, want 0", gw.calls)
	}
}

func TestCompareBrands(t *testing.T) {
	gw := &stubGateway{
		base: map[string]float64{
			"seat": 20000, "renault": 21000, "kia": 19000,
			"audi": 45000, "bmw": 47000, "opel": 18500, "fiat": 17000,
		},
		drop: 1500,
	}
	p := testPipeline(gw)

	result, err := p.CompareBrands(context.Background(), CompareRequest{
		Features:   fullSelection(),
		CurrentAge: 2,
		CurrentKM:  20000,
		Candidates: []string{"seat", "renault", "kia", "audi", "bmw", "opel", "fiat"},
	})
	if err != nil {
		t.Fatalf("CompareBrands failed: %v", err)
	}

	// The selected brand plus its shortlist of 6 nearest by age-0 value.
	if len(result.Series) != 7 {
		t.Fatalf("got %d series, want 7", len(result.Series))
	}
	if result.Series[0].Label != "seat" {
		t.Errorf("first series = %q, want the selected brand", result.Series[0].Label)
	}
	if len(result.Summaries) != 7 {
		t.Errorf("got %d summaries, want 7", len(result.Summaries))
	}
	for _, s := range result.Summaries {
		if _, ok := s.ValueAtAge[5]; !ok {
			t.Errorf("summary %q missing milestone age 5", s.Brand)
		}
	}
}

func TestCompareBrands_GatewayFailurePropagates(t *testing.T) {
	gw := &stubGateway{err: validate.ErrGatewayUnavailable}
	p := testPipeline(gw)

	_, err := p.CompareBrands(context.Background(), CompareRequest{
		Features:   fullSelection(),
		CurrentAge: 2,
		CurrentKM:  20000,
		Candidates: []string{"seat", "audi"},
	})
	if !errors.Is(err, validate.ErrGatewayUnavailable) {
		t.Fatalf("err = %v, want ErrGatewayUnavailable", err)
	}
}

func TestCompareFuelTypes(t *testing.T) {
	gw := &stubGateway{base: map[string]float64{"seat": 20000}, drop: 1000}
	p := testPipeline(gw)

	result, err := p.CompareFuelTypes(context.Background(), CompareRequest{
		Features:   fullSelection(),
		CurrentAge: 2,
		CurrentKM:  20000,
		Candidates: []string{"diesel", "gasolina"},
	})
	if err != nil {
		t.Fatalf("CompareFuelTypes failed: %v", err)
	}

	if len(result.Series) != 2 {
		t.Fatalf("got %d series, want 2", len(result.Series))
	}
	if result.Summaries != nil {
		t.Error("fuel-type comparisons must not carry brand summaries")
	}
}

func TestErrorReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{validate.ErrMissingSelection, "missing_selection"},
		{&validate.MissingFieldsError{Fields: []string{"brand"}}, "missing_fields"},
		{&validate.ShapeMismatchError{What: "prices", Want: 11, Got: 3}, "shape_mismatch"},
		{validate.ErrEmptyInput, "empty_input"},
		{validate.ErrUnknownBrand, "unknown_brand"},
		{validate.ErrEmptyPrediction, "empty_prediction"},
		{validate.ErrModelNotFound, "model_not_found"},
		{validate.ErrGatewayUnavailable, "gateway_unavailable"},
		{errors.New("boom"), "internal"},
	}

	for _, tt := range tests {
		if got := errorReason(tt.err); got != tt.want {
			t.Errorf("errorReason(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
