package utils

import "math"

// L2Norm returns the Euclidean length of x, accumulating in float64.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// NormalizeL2 scales x in place to unit length. Zero and non-finite vectors are left as they are
// so the index can reject the latter.
func NormalizeL2(x []float32) {
	norm := L2Norm(x)
	if norm == 0 || math.IsInf(norm, 0) || math.IsNaN(norm) {
		return
	}
	scale := float32(1 / norm)
	for i := range x {
		x[i] *= scale
	}
}

// Finite reports whether every component of x is a finite number.
func Finite(x []float32) bool {
	for _, v := range x {
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
