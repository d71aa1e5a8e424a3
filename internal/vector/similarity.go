// Package vector provides similarity math and the embedding wire encoding.
package vector

import "math"

// InnerProduct returns the inner product of two vectors (for normalized
// vectors equals cosine similarity).
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i] * b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	return math.Sqrt(squaredNorm(x))
}

// CosineSimilarity returns the cosine similarity of a and b: their dot
// product over the product of their norms. Mismatched lengths or a
// zero-norm side yield 0. Identical vectors return exactly 1; computing
// through the norms can land a hair under 1 and a truncated percentage
// would read 99 for a perfect match.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	dot := InnerProduct(a, b)
	na2 := squaredNorm(a)
	nb2 := squaredNorm(b)
	if na2 == 0 || nb2 == 0 {
		return 0
	}
	if dot == na2 && dot == nb2 {
		return 1
	}
	cos := dot / math.Sqrt(na2*nb2)
	if cos > 1 {
		return 1
	}
	if cos < -1 {
		return -1
	}
	return cos
}

func squaredNorm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v * v)
	}
	return sum
}
