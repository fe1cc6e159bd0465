// Package vector provides similarity helpers for normalized vectors.
package vector

import (
	"math"

	"github.com/charpstar/visearch/internal/models"
)

// normEpsilon is the threshold below which a vector norm is treated as zero.
const normEpsilon = 1e-10

// InnerProduct returns the inner product of two vectors (for normalized
// vectors this equals cosine similarity).
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
	var sum float64
	for _, v := range x {
		sum += float64(v * v)
	}
	return math.Sqrt(sum)
}

// Normalize scales x to unit length in place and returns the original norm.
// A zero or near-zero norm is a degenerate vector error.
func Normalize(x []float32) (float64, error) {
	norm := L2Norm(x)
	if norm < normEpsilon {
		return 0, models.NewError(models.KindDegenerateVector, "vector has zero norm")
	}
	inv := float32(1.0 / norm)
	for i := range x {
		x[i] *= inv
	}
	return norm, nil
}
