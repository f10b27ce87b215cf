package rest

import (
	"net/http"

	// Registers the generated API document with swag.
	_ "github.com/Quan024/Phan-loai-bao/docs"
	"github.com/Quan024/Phan-loai-bao/infrastructure/observability"
	"github.com/Quan024/Phan-loai-bao/interfaces/http/rest/handlers"
	"github.com/Quan024/Phan-loai-bao/interfaces/http/rest/middleware"
	pkgerrors "github.com/Quan024/Phan-loai-bao/pkg/errors"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/swaggo/swag"
	"go.uber.org/zap"
)

// ClassifierService is what the routes need from the application layer
type ClassifierService interface {
	handlers.Classifier
	handlers.GraphStats
}

// RouterConfig holds the HTTP surface settings
type RouterConfig struct {
	AllowedOrigin    string
	AllowCredentials bool
	MaxAge           int
	MaxRequestBytes  int64

	// Nil disables the breaker
	CircuitBreaker *middleware.CircuitBreakerConfig
	// Nil disables per-client rate limiting
	RateLimit *middleware.RateLimitConfig

	// Empty disables the route
	MetricsPath string

	EnableSwagger bool
	EnableTracing bool
	ServiceName   string
}

// Router creates and configures the HTTP router
type Router struct {
	service      ClassifierService
	collector    *observability.Collector
	errorHandler *pkgerrors.ErrorHandler
	config       RouterConfig
	logger       *zap.Logger
}

// NewRouter creates a new router instance. collector may be nil.
func NewRouter(
	service ClassifierService,
	collector *observability.Collector,
	errorHandler *pkgerrors.ErrorHandler,
	config RouterConfig,
	logger *zap.Logger,
) *Router {
	return &Router{
		service:      service,
		collector:    collector,
		errorHandler: errorHandler,
		config:       config,
		logger:       logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() *chi.Mux {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.PeerAddr)
	router.Use(chimiddleware.RealIP)
	router.Use(rt.errorHandler.Middleware)
	router.Use(middleware.Logger(rt.logger))
	if rt.config.EnableTracing {
		router.Use(observability.TracingMiddleware(rt.config.ServiceName))
	}
	if rt.collector != nil {
		router.Use(observability.MetricsMiddleware(rt.collector))
	}

	// Exactly one browser origin, any method and header
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{rt.config.AllowedOrigin},
		AllowedMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Trace-ID"},
		AllowCredentials: rt.config.AllowCredentials,
		MaxAge:           rt.config.MaxAge,
	}))

	health := handlers.NewHealthHandler(rt.service)
	router.Get("/health", health.Health)
	router.Get("/ready", health.Ready)

	predict := handlers.NewPredictHandler(rt.service, rt.errorHandler, rt.config.MaxRequestBytes, rt.logger)
	router.Group(func(r chi.Router) {
		if rt.config.RateLimit != nil {
			limiter := middleware.NewIPRateLimiter(*rt.config.RateLimit)
			r.Use(middleware.RateLimit(limiter, rt.errorHandler, rt.logger))
		}
		if rt.config.CircuitBreaker != nil {
			r.Use(middleware.CircuitBreaker(*rt.config.CircuitBreaker, rt.errorHandler, rt.logger))
		}
		r.Post("/predict", predict.Predict)
	})

	if rt.collector != nil && rt.config.MetricsPath != "" {
		router.Method(http.MethodGet, rt.config.MetricsPath, rt.collector.Handler())
	}
	if rt.config.EnableSwagger {
		router.Get("/swagger/doc.json", rt.swaggerDoc)
	}

	return router
}

// swaggerDoc serves the registered OpenAPI document
func (rt *Router) swaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		rt.errorHandler.Handle(w, r, pkgerrors.NewInternalError("failed to render API document").WithCause(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(doc))
}
