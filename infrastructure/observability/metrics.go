package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Inference metrics
	Predictions     *prometheus.CounterVec
	Failures        *prometheus.CounterVec
	ForwardDuration prometheus.Histogram
	Similarity      prometheus.Histogram
	GraphResets     prometheus.Counter
	GraphNodes      prometheus.Gauge
	GraphEdges      prometheus.Gauge
}

// NewCollector creates a collector with its own registry. Go runtime and
// process metrics are registered alongside.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "predictions_total",
				Help:      "Successful predictions by top class",
			},
			[]string{"class"},
		),
		Failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "prediction_failures_total",
				Help:      "Failed predictions by error type",
			},
			[]string{"type"},
		),
		ForwardDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "forward_pass_duration_seconds",
				Help:      "Duration of the whole-graph forward pass",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
			},
		),
		Similarity: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "attachment_similarity",
				Help:      "Cosine similarity between a new paper and the node it attached to",
				Buckets:   prometheus.LinearBuckets(-1, 0.2, 11),
			},
		),
		GraphResets: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_resets_total",
				Help:      "Times the graph was reset to its seed nodes",
			},
		),
		GraphNodes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "graph_nodes",
				Help:      "Nodes currently in the citation graph",
			},
		),
		GraphEdges: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "graph_edges",
				Help:      "Directed edges currently in the citation graph",
			},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Predictions,
		c.Failures,
		c.ForwardDuration,
		c.Similarity,
		c.GraphResets,
		c.GraphNodes,
		c.GraphEdges,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// RecordPrediction counts a successful prediction
func (c *Collector) RecordPrediction(topClass string, similarity float64, forward time.Duration) {
	c.Predictions.WithLabelValues(topClass).Inc()
	c.Similarity.Observe(similarity)
	c.ForwardDuration.Observe(forward.Seconds())
}

// RecordFailure counts a failed prediction
func (c *Collector) RecordFailure(errorType string) {
	c.Failures.WithLabelValues(errorType).Inc()
}

// RecordGraphReset counts a reset to the seed graph
func (c *Collector) RecordGraphReset() {
	c.GraphResets.Inc()
}

// SetGraphSize publishes the committed graph size
func (c *Collector) SetGraphSize(nodes, edges int) {
	c.GraphNodes.Set(float64(nodes))
	c.GraphEdges.Set(float64(edges))
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
