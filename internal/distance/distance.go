// Package distance converts raw nearest-station distances of unknown unit into
// meters and renders them for display.
//
// The upstream geospatial service returns a bare number. Its unit is inferred
// from magnitude alone: values below 0.1 are read as decimal degrees, values
// below 1000 as kilometers and anything larger as meters. The thresholds and
// the degree-to-meter factor are load-bearing; results are compared against
// historical output.
package distance

import (
	"math"
	"strconv"
)

// Unit tags attached to enriched listings
const (
	UnitDegrees    = "degrees"
	UnitKilometers = "km"
	UnitMeters     = "m"
)

// NotApplicable is the display string for an unknown distance
const NotApplicable = "N/A"

const (
	degreeThreshold    = 0.1
	kilometerCeiling   = 1000.0
	metersPerDegree    = 111000.0
	metersPerKilometer = 1000.0
)

// Infer converts a raw distance to meters and reports the unit it assumed
func Infer(raw float64) (meters float64, unit string) {
	switch {
	case raw < degreeThreshold:
		return raw * metersPerDegree, UnitDegrees
	case raw < kilometerCeiling:
		return raw * metersPerKilometer, UnitKilometers
	default:
		return raw, UnitMeters
	}
}

// FormatMeters renders a distance in meters.
//
//	850    -> "850m"
//	1000   -> "1km"
//	1550   -> "1.6km"
//	9999   -> "10km"
//	12400  -> "12km"
func FormatMeters(meters float64) string {
	if meters < 1000 {
		return strconv.Itoa(int(math.Round(meters))) + "m"
	}

	km := meters / metersPerKilometer
	if km < 10 {
		// one decimal, rounded half away from zero on the hectometer count
		tenths := math.Round(meters / 100)
		return strconv.FormatFloat(tenths/10, 'f', -1, 64) + "km"
	}
	return strconv.Itoa(int(math.Round(km))) + "km"
}

// Format infers the unit of raw and renders it. It is the composition of
// Infer and FormatMeters.
func Format(raw float64) (formatted string, unit string) {
	meters, unit := Infer(raw)
	return FormatMeters(meters), unit
}
