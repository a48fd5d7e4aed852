// Package vectorstore holds helpers shared by the store backends; the
// backends themselves live in subpackages.
package vectorstore

import "math"

// CosineDistance returns 1 - cosine similarity, so identical vectors score 0
// and orthogonal vectors score 1. Zero-norm vectors are treated as maximally
// distant rather than as an error; a corpus can legitimately contain a text
// whose local embedding has no in-vocabulary tokens.
func CosineDistance(a, b []float64) float64 {
	n := min(len(a), len(b))
	var dot float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	var na, nb float64
	for _, v := range a {
		na += v * v
	}
	for _, v := range b {
		nb += v * v
	}
	if na == 0 || nb == 0 {
		return 1
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if sim > 1 {
		sim = 1
	}
	if sim < -1 {
		sim = -1
	}
	return 1 - sim
}
