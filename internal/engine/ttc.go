package engine

import "math"

// ComputeTTC returns the time-to-collision in seconds. A closing velocity of
// zero or less means the human is not approaching and yields +Inf.
func ComputeTTC(distanceM, closingVelocityMS float64) float64 {
	if closingVelocityMS <= 0 {
		return math.Inf(1)
	}

	return distanceM / closingVelocityMS
}
