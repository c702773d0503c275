package agents

import "golang.org/x/exp/constraints"

// Clamp bounds v to [lo, hi]. NaN collapses to lo.
func Clamp[T constraints.Float](v, lo, hi T) T {
	if v != v || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// ClampBeliefStrength bounds conviction to [MinBeliefStrength, MaxBeliefStrength].
func ClampBeliefStrength(v float64) float64 {
	return Clamp(v, MinBeliefStrength, MaxBeliefStrength)
}
