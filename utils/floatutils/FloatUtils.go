// Package floatutils holds small helpers for slices and scalars of
// float64
package floatutils

import (
	"math"
)

// Clip limits value to the interval [min, max], returning whichever
// bound value crossed
func Clip(value, min, max float64) float64 {
	clipped := math.Min(value, max)
	return math.Max(clipped, min)
}

// ArgMax returns the index of the maximum value in a slice of float64.
// Ties are broken by the lowest index so that repeated calls on equal
// inputs return the same index.
func ArgMax(values []float64) int {
	argMax := 0
	for i, value := range values {
		if value > values[argMax] {
			argMax = i
		}
	}
	return argMax
}

// AllFinite returns whether every value in a slice of float64 is
// neither NaN nor an infinity.
func AllFinite(values []float64) bool {
	for _, value := range values {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return false
		}
	}
	return true
}

// Max returns the largest of its arguments
func Max(floats ...float64) float64 {
	max := floats[0]
	for _, val := range floats {
		if val > max {
			max = val
		}
	}
	return max
}
