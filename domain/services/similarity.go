package services

import (
	"math"

	"github.com/viterin/vek"
)

// CosineEps bounds each norm from below so zero rows score 0 instead of NaN.
const CosineEps = 1e-8

// Norm returns the Euclidean norm of v.
func Norm(v []float64) float64 {
	return math.Sqrt(vek.Dot(v, v))
}

// CosineSimilarity computes a·b / (max(|a|, eps) * max(|b|, eps)) with
// precomputed norms.
func CosineSimilarity(a, b []float64, normA, normB float64) float64 {
	return vek.Dot(a, b) / (math.Max(normA, CosineEps) * math.Max(normB, CosineEps))
}

// NearestByCosine scans the first len(norms) rows of a flat row-major matrix
// and returns the index of the row most similar to query. The first row
// wins a tie. It returns -1 when there are no rows.
func NearestByCosine(query []float64, features []float64, dim int, norms []float64) (int, float64) {
	best, bestSim := -1, math.Inf(-1)
	queryNorm := Norm(query)

	for i := range norms {
		row := features[i*dim : (i+1)*dim]
		sim := CosineSimilarity(query, row, queryNorm, norms[i])
		if best < 0 || sim > bestSim {
			best, bestSim = i, sim
		}
	}

	if best < 0 {
		return -1, 0
	}
	return best, bestSim
}
