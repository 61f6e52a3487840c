package valuation

import (
	"math"

	"github.com/zikzero/carvalue/pkg/validate"
	"github.com/zikzero/carvalue/pkg/vehicle"
)

// BuildObservations turns parallel age and mileage slices into model input
// records carrying the given categorical features. A length mismatch
// between ages and kms is a caller error and is rejected outright.
func BuildObservations(ages, kms []int, f vehicle.Features) ([]vehicle.Observation, error) {
	if len(kms) != len(ages) {
		return nil, &validate.ShapeMismatchError{What: "ages vs kms", Want: len(ages), Got: len(kms)}
	}

	obs := make([]vehicle.Observation, len(ages))
	for i, age := range ages {
		obs[i] = vehicle.NewObservation(age, kms[i], f)
	}
	return obs, nil
}

// BuildObservationsFromAvg builds observations when no explicit mileage
// curve is available, assuming avgKMPerYear kilometres accumulate each
// year from age 0. Used by the comparison engine's default km policy.
func BuildObservationsFromAvg(ages []int, avgKMPerYear int, f vehicle.Features) []vehicle.Observation {
	obs := make([]vehicle.Observation, len(ages))
	for i, age := range ages {
		km := int(math.Round(float64(age) * float64(avgKMPerYear)))
		obs[i] = vehicle.NewObservation(age, km, f)
	}
	return obs
}
