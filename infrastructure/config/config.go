package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Quan024/Phan-loai-bao/domain/core/aggregates"
	"github.com/Quan024/Phan-loai-bao/domain/core/valueobjects"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Environment string `yaml:"environment"`

	Server         ServerConfig         `yaml:"server"`
	CORS           CORSConfig           `yaml:"cors"`
	Dataset        DatasetConfig        `yaml:"dataset"`
	Model          ModelConfig          `yaml:"model"`
	Graph          GraphConfig          `yaml:"graph"`
	Embedding      EmbeddingConfig      `yaml:"embedding"`
	Logging        LoggingConfig        `yaml:"logging"`
	Metrics        MetricsConfig        `yaml:"metrics"`
	Tracing        TracingConfig        `yaml:"tracing"`
	Events         EventsConfig         `yaml:"events"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	Swagger        SwaggerConfig        `yaml:"swagger"`

	// Path the YAML layer was read from, empty when none was found
	Source string `yaml:"-"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxRequestBytes int64         `yaml:"max_request_bytes"`
}

// CORSConfig allows exactly one browser origin
type CORSConfig struct {
	AllowedOrigin    string `yaml:"allowed_origin"`
	AllowCredentials bool   `yaml:"allow_credentials"`
	MaxAge           int    `yaml:"max_age"`
}

// DatasetConfig points at the raw Cora files
type DatasetConfig struct {
	ContentPath       string `yaml:"content_path"`
	CitesPath         string `yaml:"cites_path"`
	NormalizeFeatures bool   `yaml:"normalize_features"`
}

// ModelConfig points at the pretrained weights
type ModelConfig struct {
	WeightsPath    string   `yaml:"weights_path"`
	HiddenChannels int      `yaml:"hidden_channels"`
	TopK           int      `yaml:"top_k"`
	ClassNames     []string `yaml:"class_names"`
}

// GraphConfig bounds graph growth. Reloadable at runtime.
type GraphConfig struct {
	MaxAddedNodes  int    `yaml:"max_added_nodes"`
	OverflowPolicy string `yaml:"overflow_policy"`
}

// EmbeddingConfig selects the title embedder
type EmbeddingConfig struct {
	Provider string `yaml:"provider"`
	Seed     uint64 `yaml:"seed"`
}

// LoggingConfig configures zap
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// MetricsConfig configures the prometheus collector
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Path      string `yaml:"path"`
}

// TracingConfig configures the OTLP exporter
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`
	SampleRate  float64 `yaml:"sample_rate"`
}

// EventsConfig selects where domain events go
type EventsConfig struct {
	Provider     string `yaml:"provider"` // none, log or eventbridge
	EventBusName string `yaml:"event_bus_name"`
	Source       string `yaml:"source"`
	Region       string `yaml:"region"`
}

// CircuitBreakerConfig configures the /predict breaker
type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold float64       `yaml:"failure_threshold"`
	MinRequests      uint32        `yaml:"min_requests"`
}

// RateLimitConfig configures the per-client /predict limiter
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	IdleTTL           time.Duration `yaml:"idle_ttl"`
	// Set only behind a proxy that overwrites X-Forwarded-For
	TrustForwardedFor bool `yaml:"trust_forwarded_for"`
}

// SwaggerConfig toggles the API document route
type SwaggerConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Address:         ":8000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxRequestBytes: 1 << 20,
		},
		CORS: CORSConfig{
			AllowedOrigin:    "http://localhost:3000",
			AllowCredentials: true,
			MaxAge:           300,
		},
		Dataset: DatasetConfig{
			ContentPath: "data/cora/cora.content",
			CitesPath:   "data/cora/cora.cites",
		},
		Model: ModelConfig{
			WeightsPath:    "model/gcn_weights.json",
			HiddenChannels: 16,
			TopK:           3,
			ClassNames:     append([]string(nil), valueobjects.CoraClassNames...),
		},
		Graph: GraphConfig{
			MaxAddedNodes:  0,
			OverflowPolicy: string(aggregates.OverflowReset),
		},
		Embedding: EmbeddingConfig{Provider: "random"},
		Logging:   LoggingConfig{Level: "info"},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "classifier",
			Path:      "/metrics",
		},
		Tracing: TracingConfig{
			ServiceName: "paper-classifier",
			Endpoint:    "localhost:4317",
			SampleRate:  1.0,
		},
		Events: EventsConfig{
			Provider:     "none",
			EventBusName: "default",
			Source:       "paper-classifier",
			Region:       "us-east-1",
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      5,
			Interval:         30 * time.Second,
			Timeout:          60 * time.Second,
			FailureThreshold: 0.8,
			MinRequests:      5,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             10,
			IdleTTL:           10 * time.Minute,
		},
		Swagger: SwaggerConfig{Enabled: true},
	}
}

// LoadConfig layers defaults, the YAML file named by CONFIG_PATH and
// environment variables, then validates the result
func LoadConfig() (*Config, error) {
	cfg := Default()

	path := getEnv("CONFIG_PATH", "config/config.yaml")
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

// mergeFile overlays the YAML file at path. A missing file is not an error.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.Source = path
	return nil
}

func (c *Config) applyEnv() {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.Server.Address = getEnv("SERVER_ADDRESS", c.Server.Address)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.CORS.AllowedOrigin = getEnv("CORS_ALLOWED_ORIGIN", c.CORS.AllowedOrigin)

	c.Dataset.ContentPath = getEnv("DATASET_CONTENT_PATH", c.Dataset.ContentPath)
	c.Dataset.CitesPath = getEnv("DATASET_CITES_PATH", c.Dataset.CitesPath)
	c.Model.WeightsPath = getEnv("MODEL_WEIGHTS_PATH", c.Model.WeightsPath)
	c.Graph.MaxAddedNodes = getEnvInt("GRAPH_MAX_ADDED_NODES", c.Graph.MaxAddedNodes)
	c.Embedding.Seed = uint64(getEnvInt("EMBEDDING_SEED", int(c.Embedding.Seed)))

	c.Metrics.Enabled = getEnvBool("ENABLE_METRICS", c.Metrics.Enabled)
	c.Tracing.Enabled = getEnvBool("ENABLE_TRACING", c.Tracing.Enabled)
	c.RateLimit.Enabled = getEnvBool("ENABLE_RATE_LIMIT", c.RateLimit.Enabled)
	c.RateLimit.TrustForwardedFor = getEnvBool("RATE_LIMIT_TRUST_FORWARDED_FOR", c.RateLimit.TrustForwardedFor)
	c.Tracing.Endpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Tracing.Endpoint)

	c.Events.Provider = getEnv("EVENTS_PROVIDER", c.Events.Provider)
	c.Events.EventBusName = getEnv("EVENT_BUS_NAME", c.Events.EventBusName)
	c.Events.Region = getEnv("AWS_REGION", c.Events.Region)
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server address is required")
	}
	if c.Server.MaxRequestBytes <= 0 {
		return fmt.Errorf("server.max_request_bytes must be positive")
	}
	if c.CORS.AllowedOrigin == "" || c.CORS.AllowedOrigin == "*" || strings.Contains(c.CORS.AllowedOrigin, ",") {
		return fmt.Errorf("cors.allowed_origin must name exactly one origin, got %q", c.CORS.AllowedOrigin)
	}
	if c.Dataset.ContentPath == "" || c.Dataset.CitesPath == "" {
		return fmt.Errorf("dataset content and cites paths are required")
	}
	if c.Model.WeightsPath == "" {
		return fmt.Errorf("MODEL_WEIGHTS_PATH is required")
	}
	if c.Model.TopK <= 0 {
		return fmt.Errorf("model.top_k must be positive")
	}
	if _, err := valueobjects.NewClassTable(c.Model.ClassNames); err != nil {
		return fmt.Errorf("model.class_names: %w", err)
	}
	if _, err := c.Graph.Limits(); err != nil {
		return err
	}
	if c.Embedding.Provider != "random" {
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	switch c.Events.Provider {
	case "none", "log":
	case "eventbridge":
		if c.Events.EventBusName == "" {
			return fmt.Errorf("EVENT_BUS_NAME is required for the eventbridge provider")
		}
	default:
		return fmt.Errorf("unknown events provider %q", c.Events.Provider)
	}
	if c.CircuitBreaker.FailureThreshold <= 0 || c.CircuitBreaker.FailureThreshold > 1 {
		return fmt.Errorf("circuit_breaker.failure_threshold must be in (0, 1]")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate_limit needs a positive requests_per_second and burst")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be in [0, 1]")
	}
	return nil
}

// Limits converts the graph section into aggregate limits
func (g GraphConfig) Limits() (aggregates.Limits, error) {
	limits := aggregates.Limits{
		MaxAddedNodes: g.MaxAddedNodes,
		Policy:        aggregates.OverflowPolicy(strings.ToLower(g.OverflowPolicy)),
	}
	if limits.MaxAddedNodes < 0 {
		return limits, fmt.Errorf("graph.max_added_nodes must not be negative")
	}
	if !limits.Policy.Valid() {
		return limits, fmt.Errorf("graph.overflow_policy must be %q or %q, got %q",
			aggregates.OverflowReset, aggregates.OverflowReject, g.OverflowPolicy)
	}
	return limits, nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
