// Package gcn implements the inference side of a two-layer graph
// convolutional network with symmetric normalisation and self loops.
package gcn

import (
	"context"
	"fmt"
	"math"

	"github.com/Quan024/Phan-loai-bao/domain/core/aggregates"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Model is an immutable two-layer GCN. It is safe for concurrent use.
type Model struct {
	w1 *mat.Dense // hidden x in
	b1 []float64
	w2 *mat.Dense // classes x hidden
	b2 []float64

	inputDim   int
	hidden     int
	numClasses int
}

// NewModel checks that the weights agree with the expected feature and
// class counts.
func NewModel(w *Weights, numFeatures, numClasses int) (*Model, error) {
	if w == nil || w.Conv1Weight == nil || w.Conv2Weight == nil {
		return nil, fmt.Errorf("weights are incomplete")
	}

	hidden, in := w.Conv1Weight.Dims()
	if in != numFeatures {
		return nil, fmt.Errorf("%s expects %d input features, dataset has %d", KeyConv1Weight, in, numFeatures)
	}
	if len(w.Conv1Bias) != hidden {
		return nil, fmt.Errorf("%s has %d entries, expected %d", KeyConv1Bias, len(w.Conv1Bias), hidden)
	}

	classes, hidden2 := w.Conv2Weight.Dims()
	if hidden2 != hidden {
		return nil, fmt.Errorf("%s expects %d hidden units, first layer produces %d", KeyConv2Weight, hidden2, hidden)
	}
	if classes != numClasses {
		return nil, fmt.Errorf("%s produces %d classes, expected %d", KeyConv2Weight, classes, numClasses)
	}
	if len(w.Conv2Bias) != classes {
		return nil, fmt.Errorf("%s has %d entries, expected %d", KeyConv2Bias, len(w.Conv2Bias), classes)
	}

	return &Model{
		w1:         w.Conv1Weight,
		b1:         w.Conv1Bias,
		w2:         w.Conv2Weight,
		b2:         w.Conv2Bias,
		inputDim:   in,
		hidden:     hidden,
		numClasses: classes,
	}, nil
}

// InputDim returns the feature dimension the first layer consumes
func (m *Model) InputDim() int { return m.inputDim }

// Hidden returns the width of the hidden layer
func (m *Model) Hidden() int { return m.hidden }

// NumClasses returns the width of the output layer
func (m *Model) NumClasses() int { return m.numClasses }

// Forward returns the Nodes x NumClasses logit matrix for the whole graph.
// Dropout is an identity at inference time and is therefore omitted.
func (m *Model) Forward(ctx context.Context, snap aggregates.Snapshot) (*mat.Dense, error) {
	if err := m.validate(snap); err != nil {
		return nil, err
	}

	norm := newNormalization(snap.Nodes, snap.Src, snap.Dst)
	x := mat.NewDense(snap.Nodes, snap.Dim, snap.Features)

	var xw mat.Dense
	xw.Mul(x, m.w1.T())
	h := norm.propagate(&xw)
	addBias(h, m.b1)
	relu(h)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var hw mat.Dense
	hw.Mul(h, m.w2.T())
	out := norm.propagate(&hw)
	addBias(out, m.b2)

	return out, nil
}

func (m *Model) validate(snap aggregates.Snapshot) error {
	if snap.Nodes <= 0 {
		return fmt.Errorf("graph has no nodes")
	}
	if snap.Dim != m.inputDim {
		return fmt.Errorf("graph features have %d dimensions, model expects %d", snap.Dim, m.inputDim)
	}
	if len(snap.Features) != snap.Nodes*snap.Dim {
		return fmt.Errorf("feature matrix has %d values, expected %d", len(snap.Features), snap.Nodes*snap.Dim)
	}
	if len(snap.Src) != len(snap.Dst) {
		return fmt.Errorf("edge list is ragged: %d sources, %d destinations", len(snap.Src), len(snap.Dst))
	}
	for i := range snap.Src {
		s, t := snap.Src[i], snap.Dst[i]
		if s < 0 || s >= snap.Nodes || t < 0 || t >= snap.Nodes {
			return fmt.Errorf("edge %d (%d -> %d) references a node outside [0, %d)", i, s, t, snap.Nodes)
		}
	}
	return nil
}

// normalization holds D^-1/2 for A+I, with degree counted on the target
// node. Explicit self loops in the edge list are replaced by the implicit
// unit loop.
type normalization struct {
	dinv []float64
	src  []int
	dst  []int
}

func newNormalization(nodes int, src, dst []int) normalization {
	deg := make([]float64, nodes)
	for i := range deg {
		deg[i] = 1
	}
	for i := range src {
		if src[i] != dst[i] {
			deg[dst[i]]++
		}
	}
	for i, d := range deg {
		deg[i] = 1 / math.Sqrt(d)
	}
	return normalization{dinv: deg, src: src, dst: dst}
}

// propagate computes D^-1/2 (A+I) D^-1/2 M
func (n normalization) propagate(m *mat.Dense) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(rows, cols, nil)

	for i := 0; i < rows; i++ {
		floats.AddScaled(out.RawRowView(i), n.dinv[i]*n.dinv[i], m.RawRowView(i))
	}
	for e := range n.src {
		s, t := n.src[e], n.dst[e]
		if s == t {
			continue
		}
		floats.AddScaled(out.RawRowView(t), n.dinv[s]*n.dinv[t], m.RawRowView(s))
	}
	return out
}

func addBias(m *mat.Dense, bias []float64) {
	rows, _ := m.Dims()
	for i := 0; i < rows; i++ {
		floats.Add(m.RawRowView(i), bias)
	}
}

func relu(m *mat.Dense) {
	m.Apply(func(_, _ int, v float64) float64 {
		if v < 0 {
			return 0
		}
		return v
	}, m)
}
