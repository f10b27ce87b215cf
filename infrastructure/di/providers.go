package di

import (
	"context"
	"fmt"
	"time"

	"github.com/Quan024/Phan-loai-bao/application/ports"
	"github.com/Quan024/Phan-loai-bao/application/services"
	"github.com/Quan024/Phan-loai-bao/domain/core/aggregates"
	"github.com/Quan024/Phan-loai-bao/domain/core/valueobjects"
	"github.com/Quan024/Phan-loai-bao/infrastructure/artifacts"
	"github.com/Quan024/Phan-loai-bao/infrastructure/config"
	"github.com/Quan024/Phan-loai-bao/infrastructure/dataset"
	"github.com/Quan024/Phan-loai-bao/infrastructure/embedding"
	"github.com/Quan024/Phan-loai-bao/infrastructure/gcn"
	"github.com/Quan024/Phan-loai-bao/infrastructure/messaging"
	"github.com/Quan024/Phan-loai-bao/infrastructure/messaging/eventbridge"
	"github.com/Quan024/Phan-loai-bao/infrastructure/observability"
	"github.com/Quan024/Phan-loai-bao/interfaces/http/rest"
	"github.com/Quan024/Phan-loai-bao/interfaces/http/rest/middleware"
	pkgerrors "github.com/Quan024/Phan-loai-bao/pkg/errors"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}
	zapCfg.Level = level

	return zapCfg.Build()
}

// ProvideClassTable builds the label table from configuration
func ProvideClassTable(cfg *config.Config) (valueobjects.ClassTable, error) {
	return valueobjects.NewClassTable(cfg.Model.ClassNames)
}

// ProvideArtifacts loads the dataset and the weights concurrently
func ProvideArtifacts(ctx context.Context, cfg *config.Config, classes valueobjects.ClassTable, logger *zap.Logger) (*artifacts.Bundle, error) {
	start := time.Now()
	bundle, err := artifacts.Load(ctx, artifacts.Options{
		Dataset: dataset.Options{
			ContentPath:       cfg.Dataset.ContentPath,
			CitesPath:         cfg.Dataset.CitesPath,
			Classes:           classes,
			NormalizeFeatures: cfg.Dataset.NormalizeFeatures,
		},
		WeightsPath: cfg.Model.WeightsPath,
	})
	if err != nil {
		return nil, err
	}

	ds := bundle.Dataset
	logger.Info("Artifacts loaded",
		zap.Int("nodes", ds.NumNodes),
		zap.Int("features", ds.NumFeatures),
		zap.Int("edges", len(ds.Src)),
		zap.Int("classes", ds.NumClasses),
		zap.Int("skippedCitations", ds.SkippedCitations),
		zap.String("weights", cfg.Model.WeightsPath),
		zap.Duration("duration", time.Since(start)),
	)
	return bundle, nil
}

// ProvideDataset exposes the loaded dataset
func ProvideDataset(bundle *artifacts.Bundle) *dataset.Dataset {
	return bundle.Dataset
}

// ProvideModel builds the network from the loaded weights
func ProvideModel(cfg *config.Config, bundle *artifacts.Bundle, logger *zap.Logger) (*gcn.Model, error) {
	model, err := bundle.Model()
	if err != nil {
		return nil, err
	}
	if cfg.Model.HiddenChannels > 0 && model.Hidden() != cfg.Model.HiddenChannels {
		logger.Warn("Hidden layer width differs from configuration",
			zap.Int("configured", cfg.Model.HiddenChannels),
			zap.Int("loaded", model.Hidden()),
		)
	}

	logger.Info("Model ready",
		zap.Int("inputDim", model.InputDim()),
		zap.Int("hidden", model.Hidden()),
		zap.Int("classes", model.NumClasses()),
	)
	return model, nil
}

// ProvideModelPort exposes the model through its port
func ProvideModelPort(model *gcn.Model) ports.Model {
	return model
}

// ProvideCitationGraph seeds the mutable graph from the dataset
func ProvideCitationGraph(cfg *config.Config, ds *dataset.Dataset) (*aggregates.CitationGraph, error) {
	graph, err := aggregates.NewCitationGraph(ds.Features, ds.NumFeatures, ds.Src, ds.Dst)
	if err != nil {
		return nil, err
	}
	limits, err := cfg.Graph.Limits()
	if err != nil {
		return nil, err
	}
	if err := graph.SetLimits(limits); err != nil {
		return nil, err
	}
	return graph, nil
}

// ProvideEmbedder creates the title embedder
func ProvideEmbedder(cfg *config.Config, ds *dataset.Dataset) ports.Embedder {
	return embedding.NewRandomEmbedder(ds.NumFeatures, cfg.Embedding.Seed)
}

// ProvideMetrics creates the Prometheus collector, or nil when disabled
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return observability.NewCollector(cfg.Metrics.Namespace)
}

// ProvideInferenceMetrics adapts the collector to the metrics port
func ProvideInferenceMetrics(collector *observability.Collector) ports.InferenceMetrics {
	if collector == nil {
		return nil
	}
	return collector
}

// ProvideTracing installs the OTLP tracer provider, or returns nil when disabled
func ProvideTracing(ctx context.Context, cfg *config.Config) (*observability.TracerProvider, error) {
	if !cfg.Tracing.Enabled {
		return nil, nil
	}
	return observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRate:  cfg.Tracing.SampleRate,
	})
}

// ProvideEventPublisher selects the event sink. "none" yields nil.
func ProvideEventPublisher(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.EventPublisher, error) {
	switch cfg.Events.Provider {
	case "eventbridge":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Events.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client := awseventbridge.NewFromConfig(awsCfg)
		return eventbridge.NewEventBridgePublisher(client, cfg.Events.EventBusName, cfg.Events.Source, logger), nil
	case "log":
		return messaging.NewLogPublisher(logger), nil
	default:
		return nil, nil
	}
}

// ProvideClassifierService creates the classifier service
func ProvideClassifierService(
	cfg *config.Config,
	graph *aggregates.CitationGraph,
	embedder ports.Embedder,
	model ports.Model,
	classes valueobjects.ClassTable,
	publisher ports.EventPublisher,
	metrics ports.InferenceMetrics,
	logger *zap.Logger,
) (*services.ClassifierService, error) {
	return services.NewClassifierService(graph, embedder, model, classes, cfg.Model.TopK, publisher, metrics, logger)
}

// ProvideErrorHandler creates the JSON error responder
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideRouter builds the chi router
func ProvideRouter(
	cfg *config.Config,
	service *services.ClassifierService,
	collector *observability.Collector,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *chi.Mux {
	routerCfg := rest.RouterConfig{
		AllowedOrigin:    cfg.CORS.AllowedOrigin,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
		MaxRequestBytes:  cfg.Server.MaxRequestBytes,
		EnableSwagger:    cfg.Swagger.Enabled,
		EnableTracing:    cfg.Tracing.Enabled,
		ServiceName:      cfg.Tracing.ServiceName,
	}
	if cfg.Metrics.Enabled {
		routerCfg.MetricsPath = cfg.Metrics.Path
	}
	if cfg.CircuitBreaker.Enabled {
		routerCfg.CircuitBreaker = &middleware.CircuitBreakerConfig{
			Name:             "predict",
			MaxRequests:      cfg.CircuitBreaker.MaxRequests,
			Interval:         cfg.CircuitBreaker.Interval,
			Timeout:          cfg.CircuitBreaker.Timeout,
			FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
			MinRequests:      cfg.CircuitBreaker.MinRequests,
		}
	}

	if cfg.RateLimit.Enabled {
		routerCfg.RateLimit = &middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
			IdleTTL:           cfg.RateLimit.IdleTTL,
			TrustForwardedFor: cfg.RateLimit.TrustForwardedFor,
		}
	}

	return rest.NewRouter(service, collector, errorHandler, routerCfg, logger).Setup()
}

// ProvideConfigWatcher watches the YAML file for graph limit changes. It
// returns nil when configuration came from defaults and the environment only.
func ProvideConfigWatcher(cfg *config.Config, service *services.ClassifierService, logger *zap.Logger) (*config.ConfigWatcher, error) {
	if cfg.Source == "" {
		return nil, nil
	}
	limits, err := cfg.Graph.Limits()
	if err != nil {
		return nil, err
	}

	watcher, err := config.NewConfigWatcher(cfg.Source, limits, logger)
	if err != nil {
		return nil, err
	}
	watcher.OnChange(func(l aggregates.Limits) {
		if err := service.UpdateLimits(l); err != nil {
			logger.Error("Failed to apply graph limits", zap.Error(err))
		}
	})
	watcher.Start()
	return watcher, nil
}
