package di

import (
	"context"
	"errors"

	"github.com/Quan024/Phan-loai-bao/application/services"
	"github.com/Quan024/Phan-loai-bao/domain/core/aggregates"
	"github.com/Quan024/Phan-loai-bao/infrastructure/config"
	"github.com/Quan024/Phan-loai-bao/infrastructure/observability"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Graph      *aggregates.CitationGraph
	Classifier *services.ClassifierService
	Metrics    *observability.Collector
	Tracer     *observability.TracerProvider
	Watcher    *config.ConfigWatcher
	Router     *chi.Mux
}

// Close releases background resources. The logger is flushed last.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if c.Watcher != nil {
		c.Watcher.Stop()
	}
	if c.Tracer != nil {
		if err := c.Tracer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Logger != nil {
		// Sync on stderr reports EINVAL on some platforms; ignored.
		_ = c.Logger.Sync()
	}
	return errors.Join(errs...)
}
