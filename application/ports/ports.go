package ports

import (
	"context"
	"time"

	"github.com/Quan024/Phan-loai-bao/domain/core/aggregates"
	"github.com/Quan024/Phan-loai-bao/domain/events"

	"gonum.org/v1/gonum/mat"
)

// Embedder turns a title into a feature vector of the graph's dimension.
// Implementations must be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, title string) ([]float64, error)
	Dim() int
}

// Model runs the graph network over a whole graph snapshot
type Model interface {
	// Forward returns a Nodes x NumClasses logit matrix
	Forward(ctx context.Context, snap aggregates.Snapshot) (*mat.Dense, error)
	InputDim() int
	NumClasses() int
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// InferenceMetrics receives classifier measurements
type InferenceMetrics interface {
	RecordPrediction(topClass string, similarity float64, forward time.Duration)
	RecordFailure(errorType string)
	RecordGraphReset()
	SetGraphSize(nodes, edges int)
}
