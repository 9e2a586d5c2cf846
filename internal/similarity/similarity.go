// Package similarity holds the vector math used for ranking.
package similarity

import "math"

// Cosine returns dot(a, b) / (|a| * |b|). It returns 0 when either vector has
// zero norm or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0
	}
	return sim
}

// Normalize returns a unit-length copy of v, or a zero vector when |v| is zero.
func Normalize(v []float32) []float64 {
	out := make([]float64, len(v))
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, x := range v {
		out[i] = float64(x) / norm
	}
	return out
}

// Matrix returns the cosine similarity of every row of a against every row of b.
// Pairs of rows with different lengths, or with a zero row, score 0.
func Matrix(a, b [][]float32) [][]float64 {
	left := make([][]float64, len(a))
	for i, row := range a {
		left[i] = Normalize(row)
	}
	right := make([][]float64, len(b))
	for j, row := range b {
		right[j] = Normalize(row)
	}

	out := make([][]float64, len(a))
	for i := range left {
		out[i] = make([]float64, len(right))
		for j := range right {
			if len(left[i]) != len(right[j]) {
				continue
			}
			var dot float64
			for k := range left[i] {
				dot += left[i][k] * right[j][k]
			}
			out[i][j] = dot
		}
	}
	return out
}
