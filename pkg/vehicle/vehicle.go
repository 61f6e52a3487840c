// Package vehicle defines the domain types shared across the carvalue
// pipeline: the categorical feature set, the observations submitted to the
// pricing model, and the depreciation rows derived from its predictions.
package vehicle

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Features holds the categorical attributes of a vehicle configuration.
// Every field must be non-empty before a prediction is requested.
type Features struct {
	FuelType string `json:"fuel_type"`
	Brand    string `json:"brand"`
	Segment  string `json:"segment"`
	BodyType string `json:"body_type"`
}

// Observation is one (age, mileage, features) tuple submitted for pricing.
// The JSON field order matches the six columns the model was trained on;
// the model server reads them positionally, so it must not change.
type Observation struct {
	KM       int    `json:"km"`
	FuelType string `json:"fuel_type"`
	Age      int    `json:"age"`
	Brand    string `json:"brand"`
	Segment  string `json:"segment"`
	BodyType string `json:"body_type"`
}

// NewObservation builds an Observation for the given age and mileage with
// the categorical features applied.
func NewObservation(age, km int, f Features) Observation {
	return Observation{
		KM:       km,
		FuelType: f.FuelType,
		Age:      age,
		Brand:    f.Brand,
		Segment:  f.Segment,
		BodyType: f.BodyType,
	}
}

// PricePoint is an Observation's position on the value curve: one age, its
// mileage, and the model's price estimate.
type PricePoint struct {
	Age   int     `json:"age"`
	KM    int     `json:"km"`
	Value float64 `json:"value"`
}

// DepreciationRow extends a PricePoint with year-over-year and cumulative
// depreciation. The row at the trajectory's first age always carries zeros.
type DepreciationRow struct {
	PricePoint

	// Depreciation is the currency drop relative to the previous year.
	Depreciation float64 `json:"depreciation"`

	// DepreciationPct is the drop relative to the previous year's value,
	// in percent. Defined as 0 when the previous value is 0.
	DepreciationPct float64 `json:"depreciation_pct"`

	// AccumDepreciationPct is the loss relative to the trajectory's first
	// value, in percent. Defined as 0 when the first value is 0.
	AccumDepreciationPct float64 `json:"accum_depreciation_pct"`
}

// ComparisonSeries pairs one categorical value (a brand or a fuel type)
// with its depreciation rows. All series produced by one comparison share
// the same age axis.
type ComparisonSeries struct {
	Label string            `json:"label"`
	Rows  []DepreciationRow `json:"rows"`
}

// BrandSummary is the aggregated, table-ready view of one comparison
// series. Averages exclude the series' first row, which is zero by
// construction.
type BrandSummary struct {
	Brand              string          `json:"brand"`
	InitialValue       float64         `json:"initial_value"`
	AvgDepreciation    float64         `json:"avg_depreciation"`
	AvgDepreciationPct float64         `json:"avg_depreciation_pct"`
	ValueAtAge         map[int]float64 `json:"value_at_age"`
}

// DisplayName converts a raw categorical value to its display form:
// short codes (three characters or fewer) are uppercased, everything else
// is title-cased per word.
func DisplayName(name string) string {
	if utf8.RuneCountInString(name) <= 3 {
		return strings.ToUpper(name)
	}
	words := strings.Fields(name)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}
