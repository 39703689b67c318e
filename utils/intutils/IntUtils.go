// Package intutils holds small helpers for ints
package intutils

// Min returns the smallest of its arguments
func Min(ints ...int) int {
	min := ints[0]
	for _, val := range ints {
		if val < min {
			min = val
		}
	}
	return min
}
