package vector

import "math"

// InnerProduct returns the dot product of a and b, or 0 when lengths differ.
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// L2Norm returns the Euclidean norm of x.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// Cosine returns the cosine similarity of a and b in [-1, 1]: the dot product
// over the product of the norms. Mismatched lengths, empty or zero vectors give 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na, nb := L2Norm(a), L2Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return clamp(InnerProduct(a, b) / (na * nb))
}

// clamp keeps float rounding from pushing a similarity outside [-1, 1].
func clamp(s float64) float64 {
	return math.Max(-1, math.Min(1, s))
}
