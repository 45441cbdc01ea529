// Package vectormath holds the numeric primitives used for similarity scoring.
package vectormath

import (
	"errors"
	"math"
)

// NeutralFill is the value substituted for an unrated dimension when a rating
// or fingerprint is projected into a comparison vector. It pulls sparse
// ratings toward the middle of the 1..5 scale.
const NeutralFill = 3.0

// ErrDimensionMismatch is returned when two vectors of different length are compared.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Float is the element type of a vector.
type Float interface {
	~float32 | ~float64
}

// DotProduct computes the dot product of two equal-length vectors.
func DotProduct[T Float](a, b []T) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Norm computes the L2 norm (magnitude) of a vector.
func Norm[T Float](v []T) float64 {
	return math.Sqrt(DotProduct(v, v))
}

// Cosine computes the cosine similarity between two vectors.
// Returns 1 for identical directions, 0 for perpendicular, -1 for opposite.
// A zero-magnitude vector has similarity 0 with everything.
func Cosine[T Float](a, b []T) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// rounding can push identical vectors a hair past 1
	return math.Max(-1, math.Min(1, sim)), nil
}

// FillNeutral projects optional values into a dense vector, replacing nil entries with fill.
func FillNeutral(values []*float64, fill float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if v == nil {
			out[i] = fill
			continue
		}
		out[i] = *v
	}
	return out
}
