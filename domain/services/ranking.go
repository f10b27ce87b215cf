package services

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// Softmax converts logits into a probability distribution.
func Softmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return nil
	}
	lse := floats.LogSumExp(logits)
	probs := make([]float64, len(logits))
	for i, l := range logits {
		probs[i] = math.Exp(l - lse)
	}
	return probs
}

// TopK returns the indices of the k largest probabilities in descending
// order. Equal probabilities keep ascending index order. k is clamped to
// len(probs).
func TopK(probs []float64, k int) []int {
	k = min(k, len(probs))
	if k <= 0 {
		return nil
	}

	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(probs[b], probs[a])
	})

	return order[:k]
}
