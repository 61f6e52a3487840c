// Package validate implements the request validation layer: pure checks
// over filter selections, built observations and model predictions, plus
// the typed error taxonomy the rest of the pipeline reports through.
//
// Checks run in a fixed order inside the pipeline: Selection before any
// observations are built, Payloads before the model is called, and
// Predictions on the model's answer. None of them mutate their input.
package validate

import (
	"sort"

	"github.com/zikzero/carvalue/pkg/vehicle"
)

// Selection verifies that all four categorical filters are set.
func Selection(f vehicle.Features) error {
	if f.FuelType == "" || f.Brand == "" || f.Segment == "" || f.BodyType == "" {
		return ErrMissingSelection
	}
	return nil
}

// Payloads verifies that every observation in the batch has all four
// categorical fields populated. The returned error names each missing
// field once, sorted.
func Payloads(obs []vehicle.Observation) error {
	if len(obs) == 0 {
		return ErrEmptyInput
	}

	missing := make(map[string]bool)
	for _, o := range obs {
		if o.FuelType == "" {
			missing["fuel_type"] = true
		}
		if o.Brand == "" {
			missing["brand"] = true
		}
		if o.Segment == "" {
			missing["segment"] = true
		}
		if o.BodyType == "" {
			missing["body_type"] = true
		}
	}

	if len(missing) == 0 {
		return nil
	}

	fields := make([]string, 0, len(missing))
	for f := range missing {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return &MissingFieldsError{Fields: fields}
}

// Predictions verifies the model's answer against the trajectory it was
// asked about: n is the number of observations submitted.
func Predictions(prices []float64, n int) error {
	if n == 0 {
		return ErrEmptyInput
	}
	if len(prices) == 0 {
		return ErrEmptyPrediction
	}
	if len(prices) != n {
		return &ShapeMismatchError{What: "predictions", Want: n, Got: len(prices)}
	}
	return nil
}
