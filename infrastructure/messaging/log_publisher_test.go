package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/Quan024/Phan-loai-bao/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	pub := NewLogPublisher(zap.New(core))

	now := time.Now().UTC()
	batch := []events.DomainEvent{
		events.NewGraphReset("graph-1", 100, 2708, now),
		events.NewPredictionCompleted("paper-1", "A title", 2708, 12, 0.3, nil, now),
	}
	require.NoError(t, pub.PublishBatch(context.Background(), batch))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, events.EventTypeGraphReset, entries[0].ContextMap()["eventType"])
	assert.Equal(t, events.EventTypePredictionCompleted, entries[1].ContextMap()["eventType"])
	assert.Equal(t, "paper-1", entries[1].ContextMap()["aggregateID"])
}
