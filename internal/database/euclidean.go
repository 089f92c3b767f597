package database

import "math"

// EuclideanDistance computes sqrt(sum((a[i]-b[i])^2)) in float64.
// Returns +Inf for vectors of different or zero length, so they never match.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
