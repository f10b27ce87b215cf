package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestSoftmax(t *testing.T) {
	t.Run("sums to one", func(t *testing.T) {
		probs := Softmax([]float64{1, 2, 3, 4, 5, 6, 7})
		assert.InDelta(t, 1, floats.Sum(probs), 1e-12)
		for i := 1; i < len(probs); i++ {
			assert.Greater(t, probs[i], probs[i-1])
		}
	})

	t.Run("stable for large logits", func(t *testing.T) {
		probs := Softmax([]float64{1000, 1000})
		require.Len(t, probs, 2)
		assert.InDelta(t, 0.5, probs[0], 1e-12)
		assert.False(t, math.IsNaN(probs[1]))
	})

	t.Run("matches the closed form", func(t *testing.T) {
		probs := Softmax([]float64{0, math.Log(3)})
		assert.InDelta(t, 0.25, probs[0], 1e-12)
		assert.InDelta(t, 0.75, probs[1], 1e-12)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, Softmax(nil))
	})
}

func TestTopK(t *testing.T) {
	tests := []struct {
		name  string
		probs []float64
		k     int
		want  []int
	}{
		{name: "descending order", probs: []float64{0.1, 0.5, 0.15, 0.25}, k: 3, want: []int{1, 3, 2}},
		{name: "ties keep the lower class id first", probs: []float64{0.2, 0.4, 0.4}, k: 3, want: []int{1, 2, 0}},
		{name: "k larger than class count", probs: []float64{0.3, 0.7}, k: 3, want: []int{1, 0}},
		{name: "k of zero", probs: []float64{1}, k: 0, want: nil},
		{name: "no classes", probs: nil, k: 3, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TopK(tt.probs, tt.k))
		})
	}
}
