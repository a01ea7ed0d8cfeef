package utils

import "math"

// NormalizeL2 normalizes x in place to unit L2 norm. A zero vector is left unchanged.
func NormalizeL2(x []float32) {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(sum))
	for i := range x {
		x[i] *= norm
	}
}

// CloneVector returns a copy of v, or nil for an empty vector.
func CloneVector(v []float32) []float32 {
	if len(v) == 0 {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
