package adsb

import "math"

// MPH_PER_KNOT is the number of statute miles per hour in one knot
const MPH_PER_KNOT = 1.15078

// KnotsToMph converts a ground speed to whole miles per hour, rounding
// halves away from zero.
func KnotsToMph(knots float64) float64 {
	return math.Round(knots * MPH_PER_KNOT)
}
