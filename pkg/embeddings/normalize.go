// Package embeddings provides helpers for embedding vectors returned by providers.
package embeddings

import (
	"math"
)

// NormalizeL2 scales vector to unit length in place. Cosine distance in pgvector is only
// comparable across rows when every provider hands back unit vectors.
// A zero vector is left unchanged.
func NormalizeL2(vector []float32) {
	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}

	if sumSquares == 0 {
		return
	}

	magnitude := math.Sqrt(sumSquares)
	for i := range vector {
		vector[i] = float32(float64(vector[i]) / magnitude)
	}
}

// Normalized returns a unit-length copy of vector, leaving the input untouched.
func Normalized(vector []float32) []float32 {
	out := make([]float32, len(vector))
	copy(out, vector)
	NormalizeL2(out)

	return out
}
