// Package messaging holds EventPublisher implementations that need no
// external broker.
package messaging

import (
	"context"

	"github.com/Quan024/Phan-loai-bao/domain/events"

	"go.uber.org/zap"
)

// LogPublisher writes each event to the logger
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a publisher that logs events at info level
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs a single event
func (p *LogPublisher) Publish(_ context.Context, event events.DomainEvent) error {
	p.logger.Info("Domain event",
		zap.String("eventID", event.GetEventID()),
		zap.String("eventType", event.GetEventType()),
		zap.String("aggregateID", event.GetAggregateID()),
		zap.Time("timestamp", event.GetTimestamp()),
		zap.Any("event", event),
	)
	return nil
}

// PublishBatch logs every event in order
func (p *LogPublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	for _, event := range batch {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
