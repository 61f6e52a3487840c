package valuation

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/zikzero/carvalue/pkg/validate"
	"github.com/zikzero/carvalue/pkg/vehicle"
)

// Predictor is the narrow view of the prediction gateway the comparison
// engine needs: an ordered batch of observations in, an equal-length
// ordered batch of prices out. Implementations must be deterministic for
// identical input.
type Predictor interface {
	Predict(ctx context.Context, obs []vehicle.Observation) ([]float64, error)
}

// Axis selects which categorical feature a comparison varies.
type Axis string

const (
	AxisBrand    Axis = "brand"
	AxisFuelType Axis = "fuel_type"
)

// ShortlistSize is how many nearest-by-initial-value brands accompany the
// selected brand in the brand comparison view.
const ShortlistSize = 6

// KMPolicy controls the mileage assumed at each age of a comparison
// series. When Explicit is set it must align with the age axis; otherwise
// AvgKMPerYear accumulates linearly from age 0.
type KMPolicy struct {
	Explicit     []int
	AvgKMPerYear int
}

// Engine fans the trajectory → predict → metrics pipeline out across a
// categorical axis. It issues one gateway call per candidate value, so a
// memoizing gateway makes repeated comparisons cheap.
type Engine struct {
	predictor Predictor
}

// NewEngine creates a comparison engine on top of a predictor.
func NewEngine(p Predictor) *Engine {
	return &Engine{predictor: p}
}

// CompareAcross prices the same trajectory once per candidate value,
// substituting each candidate into base on the given axis while holding
// every other feature fixed. Series come back in candidate order, one set
// of depreciation rows each, all sharing the age axis.
func (e *Engine) CompareAcross(ctx context.Context, axis Axis, candidates []string, base vehicle.Features, ages []int, km KMPolicy) ([]vehicle.ComparisonSeries, error) {
	if len(ages) == 0 {
		return nil, validate.ErrEmptyInput
	}
	if km.Explicit != nil && len(km.Explicit) != len(ages) {
		return nil, &validate.ShapeMismatchError{What: "ages vs kms", Want: len(ages), Got: len(km.Explicit)}
	}

	series := make([]vehicle.ComparisonSeries, 0, len(candidates))
	for _, candidate := range candidates {
		feats, err := substitute(base, axis, candidate)
		if err != nil {
			return nil, err
		}

		var obs []vehicle.Observation
		if km.Explicit != nil {
			obs, err = BuildObservations(ages, km.Explicit, feats)
			if err != nil {
				return nil, err
			}
		} else {
			obs = BuildObservationsFromAvg(ages, km.AvgKMPerYear, feats)
		}

		if err := validate.Payloads(obs); err != nil {
			return nil, err
		}

		rows, err := e.Price(ctx, obs)
		if err != nil {
			return nil, fmt.Errorf("series %q: %w", candidate, err)
		}
		series = append(series, vehicle.ComparisonSeries{Label: candidate, Rows: rows})
	}
	return series, nil
}

// CompareBrands builds the brand comparison view: the selected brand plus
// the ShortlistSize brands whose age-0 value sits closest to the selected
// brand's. The selected brand's series comes first; the rest follow in
// descending age-0 value order.
func (e *Engine) CompareBrands(ctx context.Context, allBrands []string, selected string, base vehicle.Features, ages []int, avgKMPerYear int) ([]vehicle.ComparisonSeries, error) {
	shortlist, err := e.brandShortlist(ctx, allBrands, selected, base)
	if err != nil {
		return nil, err
	}

	candidates := append([]string{selected}, shortlist...)
	series, err := e.CompareAcross(ctx, AxisBrand, candidates, base, ages, KMPolicy{AvgKMPerYear: avgKMPerYear})
	if err != nil {
		return nil, err
	}

	rest := series[1:]
	sort.SliceStable(rest, func(i, j int) bool {
		return initialValue(rest[i]) > initialValue(rest[j])
	})
	return series, nil
}

// brandShortlist probes every brand's value at age 0 and keeps the
// ShortlistSize nearest to the selected brand's, excluding the selected
// brand itself. Equally-distant brands tie-break lexicographically by
// name so the shortlist is deterministic.
func (e *Engine) brandShortlist(ctx context.Context, allBrands []string, selected string, base vehicle.Features) ([]string, error) {
	initial := make(map[string]float64, len(allBrands))
	selectedSeen := false

	for _, brand := range allBrands {
		feats, err := substitute(base, AxisBrand, brand)
		if err != nil {
			return nil, err
		}
		probe := []vehicle.Observation{vehicle.NewObservation(0, 0, feats)}
		if err := validate.Payloads(probe); err != nil {
			return nil, err
		}
		prices, err := e.predictor.Predict(ctx, probe)
		if err != nil {
			return nil, fmt.Errorf("probe brand %q: %w", brand, err)
		}
		if err := validate.Predictions(prices, 1); err != nil {
			return nil, err
		}
		initial[brand] = prices[0]
		if brand == selected {
			selectedSeen = true
		}
	}

	if !selectedSeen {
		return nil, fmt.Errorf("brand %q: %w", selected, validate.ErrUnknownBrand)
	}

	type distance struct {
		brand string
		diff  float64
	}
	distances := make([]distance, 0, len(initial)-1)
	for brand, value := range initial {
		if brand == selected {
			continue
		}
		distances = append(distances, distance{brand: brand, diff: math.Abs(value - initial[selected])})
	}

	sort.Slice(distances, func(i, j int) bool {
		if distances[i].diff != distances[j].diff {
			return distances[i].diff < distances[j].diff
		}
		return distances[i].brand < distances[j].brand
	})

	n := ShortlistSize
	if len(distances) < n {
		n = len(distances)
	}
	shortlist := make([]string, n)
	for i := 0; i < n; i++ {
		shortlist[i] = distances[i].brand
	}
	return shortlist, nil
}

// Summaries aggregates comparison series into table rows. Milestone ages
// absent from a series' age axis are simply left out of its ValueAtAge
// map.
func Summaries(series []vehicle.ComparisonSeries, milestones []int) []vehicle.BrandSummary {
	summaries := make([]vehicle.BrandSummary, 0, len(series))
	for _, s := range series {
		sum := vehicle.BrandSummary{
			Brand:      vehicle.DisplayName(s.Label),
			ValueAtAge: make(map[int]float64, len(milestones)),
		}

		// The first row carries defined-zero depreciation whatever its
		// age, so it supplies the initial value and stays out of the
		// means. Forward-only windows start past age 0.
		var dropTotal, pctTotal float64
		var count int
		for i, row := range s.Rows {
			if i == 0 {
				sum.InitialValue = row.Value
				continue
			}
			dropTotal += row.Depreciation
			pctTotal += row.DepreciationPct
			count++
		}
		if count > 0 {
			sum.AvgDepreciation = Round2(dropTotal / float64(count))
			sum.AvgDepreciationPct = Round2(pctTotal / float64(count))
		}

		for _, age := range milestones {
			for _, row := range s.Rows {
				if row.Age == age {
					sum.ValueAtAge[age] = row.Value
					break
				}
			}
		}
		summaries = append(summaries, sum)
	}
	return summaries
}

// Price submits one batch of observations and derives depreciation rows
// from the answer.
func (e *Engine) Price(ctx context.Context, obs []vehicle.Observation) ([]vehicle.DepreciationRow, error) {
	prices, err := e.predictor.Predict(ctx, obs)
	if err != nil {
		return nil, err
	}
	if err := validate.Predictions(prices, len(obs)); err != nil {
		return nil, err
	}

	points := make([]vehicle.PricePoint, len(obs))
	for i, o := range obs {
		points[i] = vehicle.PricePoint{Age: o.Age, KM: o.KM, Value: prices[i]}
	}
	return Metrics(points), nil
}

func substitute(base vehicle.Features, axis Axis, value string) (vehicle.Features, error) {
	switch axis {
	case AxisBrand:
		base.Brand = value
	case AxisFuelType:
		base.FuelType = value
	default:
		return vehicle.Features{}, fmt.Errorf("unknown comparison axis %q", axis)
	}
	return base, nil
}

func initialValue(s vehicle.ComparisonSeries) float64 {
	if len(s.Rows) > 0 {
		return s.Rows[0].Value
	}
	return 0
}
