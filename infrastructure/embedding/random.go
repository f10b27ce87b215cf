// Package embedding turns paper titles into feature vectors.
package embedding

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// RandomEmbedder ignores the title and draws a vector of independent
// standard normal values. It stands in for a real text encoder.
type RandomEmbedder struct {
	mu  sync.Mutex
	rng *rand.Rand
	dim int
}

// NewRandomEmbedder returns an embedder producing dim-length vectors. A zero
// seed draws the seed from the clock.
func NewRandomEmbedder(dim int, seed uint64) *RandomEmbedder {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &RandomEmbedder{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		dim: dim,
	}
}

// Dim returns the vector length
func (e *RandomEmbedder) Dim() int {
	return e.dim
}

// Embed returns a fresh random vector
func (e *RandomEmbedder) Embed(ctx context.Context, _ string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := make([]float64, e.dim)
	e.mu.Lock()
	for i := range v {
		v[i] = e.rng.NormFloat64()
	}
	e.mu.Unlock()
	return v, nil
}
