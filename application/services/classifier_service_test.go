package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Quan024/Phan-loai-bao/domain/core/aggregates"
	"github.com/Quan024/Phan-loai-bao/domain/core/valueobjects"
	"github.com/Quan024/Phan-loai-bao/domain/events"
	"github.com/Quan024/Phan-loai-bao/infrastructure/embedding"
	"github.com/Quan024/Phan-loai-bao/infrastructure/gcn"
	pkgerrors "github.com/Quan024/Phan-loai-bao/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// fakeModel returns logits that favour class (row + col) % classes
type fakeModel struct {
	inputDim int
	classes  int
	rowsLess int
	err      error
}

func (m *fakeModel) Forward(_ context.Context, snap aggregates.Snapshot) (*mat.Dense, error) {
	if m.err != nil {
		return nil, m.err
	}
	rows := snap.Nodes - m.rowsLess
	out := mat.NewDense(rows, m.classes, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < m.classes; c++ {
			out.Set(r, c, float64((r+c)%m.classes))
		}
	}
	return out, nil
}

func (m *fakeModel) InputDim() int   { return m.inputDim }
func (m *fakeModel) NumClasses() int { return m.classes }

type fixedEmbedder struct {
	vector []float64
}

func (e fixedEmbedder) Embed(ctx context.Context, _ string) ([]float64, error) {
	out := make([]float64, len(e.vector))
	copy(out, e.vector)
	return out, ctx.Err()
}

func (e fixedEmbedder) Dim() int { return len(e.vector) }

type recordingPublisher struct {
	mu      sync.Mutex
	events  []events.DomainEvent
	batches [][]events.DomainEvent
	err     error
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return p.PublishBatch(ctx, []events.DomainEvent{event})
}

func (p *recordingPublisher) PublishBatch(_ context.Context, batch []events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, batch...)
	p.batches = append(p.batches, batch)
	return p.err
}

type recordingMetrics struct {
	mu          sync.Mutex
	predictions []string
	failures    []string
	resets      int
	nodes       int
}

func (m *recordingMetrics) RecordPrediction(topClass string, _ float64, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions = append(m.predictions, topClass)
}

func (m *recordingMetrics) RecordFailure(errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, errorType)
}

func (m *recordingMetrics) RecordGraphReset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
}

func (m *recordingMetrics) SetGraphSize(nodes, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes = nodes
}

func newSeedGraph(t *testing.T) *aggregates.CitationGraph {
	t.Helper()
	g, err := aggregates.NewCitationGraph(
		[]float64{
			1, 0, 0,
			0, 1, 0,
			0, 0, 1,
		},
		3,
		[]int{0, 1, 1, 2},
		[]int{1, 0, 2, 1},
	)
	require.NoError(t, err)
	return g
}

type fixture struct {
	graph     *aggregates.CitationGraph
	service   *ClassifierService
	publisher *recordingPublisher
	metrics   *recordingMetrics
}

func newFixture(t *testing.T, model *fakeModel, topK int) fixture {
	t.Helper()
	g := newSeedGraph(t)
	pub := &recordingPublisher{}
	rec := &recordingMetrics{}
	svc, err := NewClassifierService(
		g,
		fixedEmbedder{vector: []float64{1, 1, 1}},
		model,
		valueobjects.DefaultClassTable(),
		topK,
		pub,
		rec,
		zap.NewNop(),
	)
	require.NoError(t, err)
	return fixture{graph: g, service: svc, publisher: pub, metrics: rec}
}

func TestPredict(t *testing.T) {
	f := newFixture(t, &fakeModel{inputDim: 3, classes: 7}, 0)

	result, err := f.service.Predict(context.Background(), "  Semi-Supervised Classification with Graph Convolutional Networks ")
	require.NoError(t, err)

	assert.Equal(t, "Semi-Supervised Classification with Graph Convolutional Networks", result.Paper.Title.String())
	require.Len(t, result.Predictions, 3)

	labels := make(map[string]bool)
	table := valueobjects.DefaultClassTable()
	for i, p := range result.Predictions {
		_, known := table.Lookup(p.Label)
		assert.True(t, known, "unknown label %q", p.Label)
		assert.False(t, labels[p.Label], "duplicate label %q", p.Label)
		labels[p.Label] = true

		assert.GreaterOrEqual(t, p.Confidence(), 0.0)
		assert.LessOrEqual(t, p.Confidence(), 100.0)
		if i > 0 {
			assert.LessOrEqual(t, p.Confidence(), result.Predictions[i-1].Confidence())
		}
	}

	// Row 3 favours class (3 + c) % 7 == 6, i.e. c = 3.
	assert.Equal(t, "Probabilistic Methods", result.Predictions[0].Label)

	assert.Equal(t, 3, result.Attachment.NodeIndex)
	assert.Equal(t, 0, result.Attachment.AttachedTo)
	assert.Equal(t, 4, f.graph.NodeCount())
	assert.Equal(t, 5, f.graph.EdgeCount())

	assert.Equal(t, []string{"Probabilistic Methods"}, f.metrics.predictions)
	assert.Equal(t, 4, f.metrics.nodes)

	require.Len(t, f.publisher.events, 1)
	completed, ok := f.publisher.events[0].(events.PredictionCompleted)
	require.True(t, ok)
	assert.Equal(t, result.Paper.ID.String(), completed.PaperID)
	assert.Equal(t, 3, completed.NodeIndex)
	assert.Len(t, completed.Predictions, 3)
}

func TestPredictAllClassesSumToAtMostHundred(t *testing.T) {
	f := newFixture(t, &fakeModel{inputDim: 3, classes: 7}, 7)

	result, err := f.service.Predict(context.Background(), "Graph Attention Networks")
	require.NoError(t, err)
	require.Len(t, result.Predictions, 7)

	sum := 0.0
	for _, p := range result.Predictions {
		sum += p.Confidence()
	}
	assert.LessOrEqual(t, sum, 100.0+0.005*7)
	assert.InDelta(t, 100, sum, 0.05)
}

func TestPredictFewerClassesThanTopK(t *testing.T) {
	classes, err := valueobjects.NewClassTable([]string{"Theory", "Practice"})
	require.NoError(t, err)

	svc, err := NewClassifierService(
		newSeedGraph(t),
		fixedEmbedder{vector: []float64{0, 0, 1}},
		&fakeModel{inputDim: 3, classes: 2},
		classes,
		3,
		nil,
		nil,
		zap.NewNop(),
	)
	require.NoError(t, err)

	result, err := svc.Predict(context.Background(), "Two classes only")
	require.NoError(t, err)
	assert.Len(t, result.Predictions, 2)
}

func TestPredictInvalidTitle(t *testing.T) {
	for _, title := range []string{"", "   ", "\t\n"} {
		t.Run("title "+title, func(t *testing.T) {
			f := newFixture(t, &fakeModel{inputDim: 3, classes: 7}, 3)

			_, err := f.service.Predict(context.Background(), title)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsValidation(err))
			assert.Equal(t, 3, f.graph.NodeCount())
			assert.Equal(t, []string{string(pkgerrors.ErrorTypeValidation)}, f.metrics.failures)
			assert.Empty(t, f.publisher.events)
		})
	}
}

func TestPredictSequentialGrowth(t *testing.T) {
	f := newFixture(t, &fakeModel{inputDim: 3, classes: 7}, 3)

	first, err := f.service.Predict(context.Background(), "first")
	require.NoError(t, err)
	assert.Equal(t, 4, f.graph.NodeCount())

	second, err := f.service.Predict(context.Background(), "second")
	require.NoError(t, err)
	assert.Equal(t, 5, f.graph.NodeCount())

	// Identical embeddings: the first paper is the closest candidate.
	assert.Equal(t, first.Attachment.NodeIndex, second.Attachment.AttachedTo)
	assert.Equal(t, 4, second.Attachment.NodeIndex)
}

func TestPredictInconsistencies(t *testing.T) {
	tests := []struct {
		name  string
		model *fakeModel
		code  string
	}{
		{
			name:  "output has no row for the new node",
			model: &fakeModel{inputDim: 3, classes: 7, rowsLess: 1},
			code:  pkgerrors.CodeNodeIndexOutOfRange,
		},
		{
			name:  "output width differs from the class table",
			model: &fakeModel{inputDim: 3, classes: 5},
			code:  pkgerrors.CodeClassCountMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.model, 3)

			_, err := f.service.Predict(context.Background(), "Inconsistent")
			require.Error(t, err)
			assert.True(t, pkgerrors.IsInconsistency(err))
			assert.Equal(t, tt.code, pkgerrors.GetAppError(err).Code)

			assert.Equal(t, 3, f.graph.NodeCount())
			assert.Equal(t, 4, f.graph.EdgeCount())
			assert.Equal(t, []string{string(pkgerrors.ErrorTypeInconsistency)}, f.metrics.failures)
		})
	}
}

func TestPredictForwardFailureRollsBack(t *testing.T) {
	f := newFixture(t, &fakeModel{inputDim: 3, classes: 7, err: errors.New("out of memory")}, 3)

	_, err := f.service.Predict(context.Background(), "Rollback")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsInternal(err))
	assert.Equal(t, 3, f.graph.NodeCount())
	assert.Equal(t, 0, f.graph.AddedCount())
}

func TestPredictCanceledDuringForwardRollsBack(t *testing.T) {
	f := newFixture(t, &fakeModel{inputDim: 3, classes: 7, err: context.Canceled}, 3)

	_, err := f.service.Predict(context.Background(), "Abandoned")
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, pkgerrors.IsAppError(err))
	assert.Equal(t, 3, f.graph.NodeCount())
	assert.Equal(t, 4, f.graph.EdgeCount())
	assert.Equal(t, []string{"canceled"}, f.metrics.failures)
	assert.Empty(t, f.publisher.events)
}

func TestPredictRejectWhenFull(t *testing.T) {
	f := newFixture(t, &fakeModel{inputDim: 3, classes: 7}, 3)
	require.NoError(t, f.service.UpdateLimits(aggregates.Limits{MaxAddedNodes: 1, Policy: aggregates.OverflowReject}))

	_, err := f.service.Predict(context.Background(), "fits")
	require.NoError(t, err)

	_, err = f.service.Predict(context.Background(), "does not fit")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsUnavailable(err))

	nodes, _ := f.service.GraphStats()
	assert.Equal(t, 4, nodes)
}

func TestPredictResetPublishesGraphEvent(t *testing.T) {
	f := newFixture(t, &fakeModel{inputDim: 3, classes: 7}, 3)
	require.NoError(t, f.service.UpdateLimits(aggregates.Limits{MaxAddedNodes: 1, Policy: aggregates.OverflowReset}))

	_, err := f.service.Predict(context.Background(), "one")
	require.NoError(t, err)
	result, err := f.service.Predict(context.Background(), "two")
	require.NoError(t, err)

	assert.True(t, result.Attachment.Reset)
	assert.Equal(t, 1, f.metrics.resets)

	var types []string
	for _, e := range f.publisher.events {
		types = append(types, e.GetEventType())
	}
	assert.Equal(t, []string{
		events.EventTypePredictionCompleted,
		events.EventTypeGraphReset,
		events.EventTypePredictionCompleted,
	}, types)
}

func TestPredictPublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, &fakeModel{inputDim: 3, classes: 7}, 3)
	f.publisher.err = errors.New("event bus down")

	_, err := f.service.Predict(context.Background(), "Still served")
	assert.NoError(t, err)
}

func TestPredictConcurrent(t *testing.T) {
	g := newSeedGraph(t)
	svc, err := NewClassifierService(
		g,
		embedding.NewRandomEmbedder(3, 99),
		&fakeModel{inputDim: 3, classes: 7},
		valueobjects.DefaultClassTable(),
		3,
		nil,
		nil,
		zap.NewNop(),
	)
	require.NoError(t, err)

	const requests = 24
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := svc.Predict(context.Background(), "concurrent")
			if assert.NoError(t, err) {
				assert.Len(t, result.Predictions, 3)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3+requests, g.NodeCount())
	assert.Equal(t, 4+requests, g.EdgeCount())
	for i := 0; i < g.EdgeCount(); i++ {
		src, dst, ok := g.Edge(i)
		require.True(t, ok)
		assert.Less(t, src, g.NodeCount())
		assert.Less(t, dst, g.NodeCount())
	}
}

func TestPredictConcurrentResetsPublishWithOwnRequest(t *testing.T) {
	f := newFixture(t, &fakeModel{inputDim: 3, classes: 7}, 3)
	require.NoError(t, f.service.UpdateLimits(aggregates.Limits{MaxAddedNodes: 2, Policy: aggregates.OverflowReset}))

	const requests = 32
	results := make([]*Classification, requests)
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := f.service.Predict(context.Background(), "racing")
			if assert.NoError(t, err) {
				results[i] = result
			}
		}(i)
	}
	wg.Wait()

	byPaper := make(map[string]*Classification, requests)
	resets := 0
	for _, r := range results {
		require.NotNil(t, r)
		byPaper[r.Paper.ID.String()] = r
		if r.Attachment.Reset {
			resets++
		}
	}
	assert.Equal(t, resets, f.metrics.resets)

	require.Len(t, f.publisher.batches, requests)
	for _, batch := range f.publisher.batches {
		completed, ok := batch[len(batch)-1].(events.PredictionCompleted)
		require.True(t, ok)
		owner, ok := byPaper[completed.PaperID]
		require.True(t, ok)

		var graphResets int
		for _, e := range batch[:len(batch)-1] {
			assert.Equal(t, events.EventTypeGraphReset, e.GetEventType())
			graphResets++
		}
		if owner.Attachment.Reset {
			assert.Equal(t, 1, graphResets)
		} else {
			assert.Zero(t, graphResets)
		}
	}
}

func TestPredictWithGraphNetwork(t *testing.T) {
	w1 := mat.NewDense(4, 3, []float64{
		0.2, -0.1, 0.4,
		-0.3, 0.5, 0.1,
		0.7, 0.2, -0.6,
		0.1, 0.1, 0.1,
	})
	w2 := mat.NewDense(7, 4, nil)
	for r := 0; r < 7; r++ {
		for c := 0; c < 4; c++ {
			w2.Set(r, c, float64((r*4+c)%5)/5-0.4)
		}
	}
	model, err := gcn.NewModel(&gcn.Weights{
		Conv1Weight: w1,
		Conv1Bias:   []float64{0, 0.1, 0, -0.1},
		Conv2Weight: w2,
		Conv2Bias:   make([]float64, 7),
	}, 3, 7)
	require.NoError(t, err)

	g := newSeedGraph(t)
	svc, err := NewClassifierService(g, embedding.NewRandomEmbedder(3, 5), model,
		valueobjects.DefaultClassTable(), 3, nil, nil, zap.NewNop())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		result, err := svc.Predict(context.Background(), "A paper")
		require.NoError(t, err)
		require.Len(t, result.Predictions, 3)
		assert.GreaterOrEqual(t, result.Predictions[0].Probability, result.Predictions[1].Probability)
		assert.GreaterOrEqual(t, result.Predictions[1].Probability, result.Predictions[2].Probability)
	}
	assert.Equal(t, 8, g.NodeCount())
}

func TestNewClassifierServiceValidation(t *testing.T) {
	g := newSeedGraph(t)
	classes := valueobjects.DefaultClassTable()

	_, err := NewClassifierService(g, fixedEmbedder{vector: []float64{1, 2}}, &fakeModel{inputDim: 3, classes: 7}, classes, 3, nil, nil, nil)
	assert.Error(t, err)

	_, err = NewClassifierService(g, fixedEmbedder{vector: []float64{1, 2, 3}}, &fakeModel{inputDim: 4, classes: 7}, classes, 3, nil, nil, nil)
	assert.Error(t, err)

	_, err = NewClassifierService(nil, fixedEmbedder{vector: []float64{1, 2, 3}}, &fakeModel{inputDim: 3, classes: 7}, classes, 3, nil, nil, nil)
	assert.Error(t, err)
}
