package events

import (
	"time"

	"github.com/google/uuid"
)

// Event type names
const (
	EventTypePredictionCompleted = "prediction.completed"
	EventTypeGraphReset          = "graph.reset"

	// SourceClassifier is the event source used for published events
	SourceClassifier = "paper-classifier"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetEventID() string
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventID     string    `json:"event_id"`
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetEventID() string      { return e.EventID }
func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

func newBaseEvent(aggregateID, eventType string, timestamp time.Time) BaseEvent {
	return BaseEvent{
		EventID:     uuid.New().String(),
		AggregateID: aggregateID,
		EventType:   eventType,
		Timestamp:   timestamp,
		Version:     1,
	}
}

// RankedClass is one entry of a published prediction
type RankedClass struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

// PredictionCompleted is raised after a paper was placed and classified
type PredictionCompleted struct {
	BaseEvent
	PaperID     string        `json:"paper_id"`
	Title       string        `json:"title"`
	NodeIndex   int           `json:"node_index"`
	AttachedTo  int           `json:"attached_to"`
	Similarity  float64       `json:"similarity"`
	Predictions []RankedClass `json:"predictions"`
}

// NewPredictionCompleted creates a PredictionCompleted event
func NewPredictionCompleted(paperID, title string, nodeIndex, attachedTo int, similarity float64, predictions []RankedClass, timestamp time.Time) PredictionCompleted {
	return PredictionCompleted{
		BaseEvent:   newBaseEvent(paperID, EventTypePredictionCompleted, timestamp),
		PaperID:     paperID,
		Title:       title,
		NodeIndex:   nodeIndex,
		AttachedTo:  attachedTo,
		Similarity:  similarity,
		Predictions: predictions,
	}
}

// GraphReset is raised when the graph drops its added nodes and returns to
// the seed snapshot
type GraphReset struct {
	BaseEvent
	DroppedNodes int `json:"dropped_nodes"`
	SeedNodes    int `json:"seed_nodes"`
}

// NewGraphReset creates a GraphReset event
func NewGraphReset(graphID string, droppedNodes, seedNodes int, timestamp time.Time) GraphReset {
	return GraphReset{
		BaseEvent:    newBaseEvent(graphID, EventTypeGraphReset, timestamp),
		DroppedNodes: droppedNodes,
		SeedNodes:    seedNodes,
	}
}
