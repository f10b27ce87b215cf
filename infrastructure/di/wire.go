//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/Quan024/Phan-loai-bao/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideClassTable,
	ProvideArtifacts,
	ProvideDataset,
	ProvideModel,
	ProvideModelPort,
	ProvideCitationGraph,
	ProvideEmbedder,
	ProvideMetrics,
	ProvideInferenceMetrics,
	ProvideTracing,
	ProvideEventPublisher,
	ProvideClassifierService,
	ProvideErrorHandler,
	ProvideRouter,
	ProvideConfigWatcher,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil
}
