// Package artifacts loads the startup artifacts: the citation dataset and
// the pretrained weights.
package artifacts

import (
	"context"
	"fmt"

	"github.com/Quan024/Phan-loai-bao/infrastructure/dataset"
	"github.com/Quan024/Phan-loai-bao/infrastructure/gcn"

	"golang.org/x/sync/errgroup"
)

// Options names the artifacts to load
type Options struct {
	Dataset     dataset.Options
	WeightsPath string
}

// Bundle holds loaded artifacts
type Bundle struct {
	Dataset *dataset.Dataset
	Weights *gcn.Weights
}

// Load reads the dataset and the weights in parallel. The first failure
// cancels the other load.
func Load(ctx context.Context, opts Options) (*Bundle, error) {
	g, ctx := errgroup.WithContext(ctx)

	var ds *dataset.Dataset
	var weights *gcn.Weights

	g.Go(func() error {
		var err error
		ds, err = dataset.LoadCora(ctx, opts.Dataset)
		if err != nil {
			return fmt.Errorf("failed to load dataset: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		weights, err = gcn.LoadWeights(opts.WeightsPath)
		if err != nil {
			return fmt.Errorf("failed to load weights: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Bundle{Dataset: ds, Weights: weights}, nil
}

// Model builds the network and checks the weights against the dataset
func (b *Bundle) Model() (*gcn.Model, error) {
	model, err := gcn.NewModel(b.Weights, b.Dataset.NumFeatures, b.Dataset.NumClasses)
	if err != nil {
		return nil, fmt.Errorf("weights do not match the dataset: %w", err)
	}
	return model, nil
}
