package gcn

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// State dict keys as exported from a two-layer torch_geometric GCN.
const (
	KeyConv1Weight = "conv1.lin.weight"
	KeyConv1Bias   = "conv1.bias"
	KeyConv2Weight = "conv2.lin.weight"
	KeyConv2Bias   = "conv2.bias"

	// Pre-2.0 torch_geometric stored the weight as [in, out] under this key.
	legacyConv1Weight = "conv1.weight"
	legacyConv2Weight = "conv2.weight"
)

// Weights holds the parameters of both convolution layers. Weight matrices
// are laid out [out, in], the same as torch.nn.Linear.
type Weights struct {
	Conv1Weight *mat.Dense
	Conv1Bias   []float64
	Conv2Weight *mat.Dense
	Conv2Bias   []float64
}

// LoadWeights reads a JSON state dict from path. A ".gz" suffix is
// decompressed on the fly.
func LoadWeights(path string) (*Weights, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open weights file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip weights %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	w, err := DecodeWeights(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode weights %s: %w", path, err)
	}
	return w, nil
}

// DecodeWeights parses a JSON object mapping parameter names to nested
// number arrays.
func DecodeWeights(r io.Reader) (*Weights, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}

	conv1, err := decodeWeightMatrix(raw, KeyConv1Weight, legacyConv1Weight)
	if err != nil {
		return nil, err
	}
	conv2, err := decodeWeightMatrix(raw, KeyConv2Weight, legacyConv2Weight)
	if err != nil {
		return nil, err
	}
	bias1, err := decodeVector(raw, KeyConv1Bias)
	if err != nil {
		return nil, err
	}
	bias2, err := decodeVector(raw, KeyConv2Bias)
	if err != nil {
		return nil, err
	}

	return &Weights{
		Conv1Weight: conv1,
		Conv1Bias:   bias1,
		Conv2Weight: conv2,
		Conv2Bias:   bias2,
	}, nil
}

func decodeWeightMatrix(raw map[string]json.RawMessage, key, legacyKey string) (*mat.Dense, error) {
	if msg, ok := raw[key]; ok {
		return decodeMatrix(key, msg)
	}
	if msg, ok := raw[legacyKey]; ok {
		m, err := decodeMatrix(legacyKey, msg)
		if err != nil {
			return nil, err
		}
		var t mat.Dense
		t.CloneFrom(m.T())
		return &t, nil
	}
	return nil, fmt.Errorf("missing parameter %q", key)
}

func decodeMatrix(key string, msg json.RawMessage) (*mat.Dense, error) {
	var rows [][]float64
	if err := json.Unmarshal(msg, &rows); err != nil {
		return nil, fmt.Errorf("parameter %q: %w", key, err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("parameter %q is empty", key)
	}

	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("parameter %q row %d has %d columns, expected %d", key, i, len(row), cols)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}

func decodeVector(raw map[string]json.RawMessage, key string) ([]float64, error) {
	msg, ok := raw[key]
	if !ok {
		return nil, fmt.Errorf("missing parameter %q", key)
	}
	var v []float64
	if err := json.Unmarshal(msg, &v); err != nil {
		return nil, fmt.Errorf("parameter %q: %w", key, err)
	}
	if len(v) == 0 {
		return nil, fmt.Errorf("parameter %q is empty", key)
	}
	return v, nil
}
