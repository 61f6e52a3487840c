// Package valuation implements the projection core: it turns a single
// (age, mileage) observation into a multi-year trajectory, derives
// depreciation metrics from the predicted value curve, and fans the
// pipeline out across brands or fuel types for what-if comparisons.
package valuation

import (
	"fmt"
	"math"
)

// Trajectory is the set of ages the model will be queried at, the mileage
// assumed at each age, and the average annual mileage the past segment of
// the curve was derived from. Ages are strictly increasing and unique.
type Trajectory struct {
	Ages         []int
	KMs          []int
	AvgKMPerYear int
}

// Horizon bounds for the age axis: vehicles younger than tenYears get the
// full fixed 0..10 window, older ones a forward-only window of
// forwardYears points starting at their current age.
const (
	tenYears     = 10
	forwardYears = 4
)

// Compute derives the trajectory for a vehicle currently aged currentAge
// years with currentKM on the odometer.
//
// The mileage curve is piecewise: ages at or below currentAge interpolate
// linearly through the origin and the (currentAge, currentKM) anchor; ages
// beyond it either continue at expectedAnnualKM per year from the anchor
// (when expectedAnnualKM > 0) or stay on the same origin line. Age 0
// always yields 0 km on the linear rule.
func Compute(currentAge, currentKM, expectedAnnualKM int) (Trajectory, error) {
	if currentAge < 0 {
		return Trajectory{}, fmt.Errorf("current age must be >= 0, got %d", currentAge)
	}
	if currentKM < 0 {
		return Trajectory{}, fmt.Errorf("current km must be >= 0, got %d", currentKM)
	}

	avg := currentKM
	if currentAge > 0 {
		avg = currentKM / currentAge
	}

	var ages []int
	if currentAge < tenYears {
		ages = ageRange(0, tenYears)
	} else {
		ages = ageRange(currentAge, currentAge+forwardYears-1)
	}

	kms := make([]int, len(ages))
	for i, y := range ages {
		switch {
		case y <= currentAge:
			if currentAge > 0 {
				kms[i] = int(math.Round(float64(y) * float64(currentKM) / float64(currentAge)))
			} else {
				kms[i] = int(math.Round(float64(y) * float64(avg)))
			}
		case expectedAnnualKM > 0:
			kms[i] = currentKM + (y-currentAge)*expectedAnnualKM
		default:
			kms[i] = int(math.Round(float64(y) * float64(avg)))
		}
	}

	return Trajectory{Ages: ages, KMs: kms, AvgKMPerYear: avg}, nil
}

func ageRange(from, to int) []int {
	ages := make([]int, 0, to-from+1)
	for y := from; y <= to; y++ {
		ages = append(ages, y)
	}
	return ages
}
