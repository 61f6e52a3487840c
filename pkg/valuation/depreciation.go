package valuation

import (
	"math"

	"github.com/zikzero/carvalue/pkg/vehicle"
)

// Metrics derives year-over-year and cumulative depreciation from a price
// trajectory. Points must already be ordered by age ascending; this
// function does not re-sort. The first row always carries zeros for all
// three derived fields.
//
// Derived fields are rounded to 2 decimals for presentation. Callers that
// aggregate further (the comparison summaries) compute their means from
// these rounded values, matching the displayed tables.
func Metrics(points []vehicle.PricePoint) []vehicle.DepreciationRow {
	rows := make([]vehicle.DepreciationRow, len(points))
	if len(points) == 0 {
		return rows
	}

	first := points[0].Value
	for i, p := range points {
		row := vehicle.DepreciationRow{PricePoint: p}
		row.Value = Round2(p.Value)

		if i > 0 {
			prev := points[i-1].Value
			drop := prev - p.Value
			row.Depreciation = Round2(drop)
			if prev != 0 {
				row.DepreciationPct = Round2(drop / prev * 100)
			}
			if first != 0 {
				row.AccumDepreciationPct = Round2((first - p.Value) / first * 100)
			}
		}
		rows[i] = row
	}
	return rows
}

// Round2 rounds to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
