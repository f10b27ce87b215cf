package gcn

import (
	"context"
	"math"
	"testing"

	"github.com/Quan024/Phan-loai-bao/domain/core/aggregates"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// tinyWeights is a 1 -> 1 -> 2 network small enough to check by hand
func tinyWeights() *Weights {
	return &Weights{
		Conv1Weight: mat.NewDense(1, 1, []float64{1}),
		Conv1Bias:   []float64{0.5},
		Conv2Weight: mat.NewDense(2, 1, []float64{1, -1}),
		Conv2Bias:   []float64{0, 1},
	}
}

func TestForward(t *testing.T) {
	model, err := NewModel(tinyWeights(), 1, 2)
	require.NoError(t, err)

	// One directed edge 0 -> 1; node 2 is isolated.
	snap := aggregates.Snapshot{
		Features: []float64{1, 2, -4},
		Nodes:    3,
		Dim:      1,
		Src:      []int{0},
		Dst:      []int{1},
		NewIndex: 2,
	}

	out, err := model.Forward(context.Background(), snap)
	require.NoError(t, err)

	rows, cols := out.Dims()
	require.Equal(t, 3, rows)
	require.Equal(t, 2, cols)

	inv := 1 / math.Sqrt2
	// Layer one after ReLU
	h0 := 1 + 0.5
	h1 := 0.5*2 + inv*1 + 0.5
	// Layer two mixes node 0 into node 1 only
	z1 := 0.5*h1 + inv*h0

	assert.InDelta(t, h0, out.At(0, 0), 1e-12)
	assert.InDelta(t, -h0+1, out.At(0, 1), 1e-12)
	assert.InDelta(t, z1, out.At(1, 0), 1e-12)
	assert.InDelta(t, -z1+1, out.At(1, 1), 1e-12)
	assert.InDelta(t, 0, out.At(2, 0), 1e-12)
	assert.InDelta(t, 1, out.At(2, 1), 1e-12)

	t.Run("explicit self loops are replaced by the implicit one", func(t *testing.T) {
		looped := snap
		looped.Src = []int{0, 2, 1}
		looped.Dst = []int{1, 2, 1}

		got, err := model.Forward(context.Background(), looped)
		require.NoError(t, err)
		assert.True(t, mat.EqualApprox(out, got, 1e-12))
	})

	t.Run("does not modify the snapshot", func(t *testing.T) {
		assert.Equal(t, []float64{1, 2, -4}, snap.Features)
	})
}

func TestForwardStopsWhenCanceled(t *testing.T) {
	model, err := NewModel(tinyWeights(), 1, 2)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := model.Forward(ctx, aggregates.Snapshot{
		Features: []float64{1, 2},
		Nodes:    2,
		Dim:      1,
		Src:      []int{0},
		Dst:      []int{1},
		NewIndex: 1,
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, out)
}

func TestForwardSymmetricGraph(t *testing.T) {
	model, err := NewModel(tinyWeights(), 1, 2)
	require.NoError(t, err)

	out, err := model.Forward(context.Background(), aggregates.Snapshot{
		Features: []float64{1, 3},
		Nodes:    2,
		Dim:      1,
		Src:      []int{0, 1},
		Dst:      []int{1, 0},
	})
	require.NoError(t, err)

	// Both nodes average to (1+3)/2 + 0.5 in the first layer.
	h := 2.5
	assert.InDelta(t, h, out.At(0, 0), 1e-12)
	assert.InDelta(t, h, out.At(1, 0), 1e-12)
	assert.InDelta(t, 1-h, out.At(1, 1), 1e-12)
}

func TestForwardRejectsBadSnapshots(t *testing.T) {
	model, err := NewModel(tinyWeights(), 1, 2)
	require.NoError(t, err)

	tests := []struct {
		name string
		snap aggregates.Snapshot
	}{
		{name: "no nodes", snap: aggregates.Snapshot{Dim: 1}},
		{name: "wrong dimension", snap: aggregates.Snapshot{Features: []float64{1, 2}, Nodes: 1, Dim: 2}},
		{name: "short feature matrix", snap: aggregates.Snapshot{Features: []float64{1}, Nodes: 2, Dim: 1}},
		{name: "ragged edges", snap: aggregates.Snapshot{Features: []float64{1}, Nodes: 1, Dim: 1, Src: []int{0}}},
		{name: "edge to missing node", snap: aggregates.Snapshot{Features: []float64{1}, Nodes: 1, Dim: 1, Src: []int{0}, Dst: []int{1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := model.Forward(context.Background(), tt.snap)
			assert.Error(t, err)
		})
	}
}

func TestNewModelShapeChecks(t *testing.T) {
	t.Run("feature count mismatch", func(t *testing.T) {
		_, err := NewModel(tinyWeights(), 3, 2)
		assert.ErrorContains(t, err, KeyConv1Weight)
	})

	t.Run("class count mismatch", func(t *testing.T) {
		_, err := NewModel(tinyWeights(), 1, 7)
		assert.ErrorContains(t, err, KeyConv2Weight)
	})

	t.Run("bias length mismatch", func(t *testing.T) {
		w := tinyWeights()
		w.Conv2Bias = []float64{0}
		_, err := NewModel(w, 1, 2)
		assert.ErrorContains(t, err, KeyConv2Bias)
	})

	t.Run("hidden width mismatch", func(t *testing.T) {
		w := tinyWeights()
		w.Conv2Weight = mat.NewDense(2, 3, nil)
		_, err := NewModel(w, 1, 2)
		assert.Error(t, err)
	})

	t.Run("accessors", func(t *testing.T) {
		m, err := NewModel(tinyWeights(), 1, 2)
		require.NoError(t, err)
		assert.Equal(t, 1, m.InputDim())
		assert.Equal(t, 1, m.Hidden())
		assert.Equal(t, 2, m.NumClasses())
	})
}
