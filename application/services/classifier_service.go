package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Quan024/Phan-loai-bao/application/ports"
	"github.com/Quan024/Phan-loai-bao/domain/core/aggregates"
	"github.com/Quan024/Phan-loai-bao/domain/core/entities"
	"github.com/Quan024/Phan-loai-bao/domain/core/valueobjects"
	"github.com/Quan024/Phan-loai-bao/domain/events"
	domainservices "github.com/Quan024/Phan-loai-bao/domain/services"
	pkgerrors "github.com/Quan024/Phan-loai-bao/pkg/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// DefaultTopK is the number of classes returned per prediction
const DefaultTopK = 3

const publishTimeout = 5 * time.Second

// Classification is the outcome of a successful Predict
type Classification struct {
	Paper       entities.Paper
	Attachment  aggregates.Attachment
	Predictions []valueobjects.Prediction
}

// ClassifierService places submitted papers in the citation graph and
// classifies them with the graph network
type ClassifierService struct {
	graph     *aggregates.CitationGraph
	embedder  ports.Embedder
	model     ports.Model
	classes   valueobjects.ClassTable
	topK      int
	publisher ports.EventPublisher
	metrics   ports.InferenceMetrics
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewClassifierService creates a new classifier service. publisher and
// metrics may be nil.
func NewClassifierService(
	graph *aggregates.CitationGraph,
	embedder ports.Embedder,
	model ports.Model,
	classes valueobjects.ClassTable,
	topK int,
	publisher ports.EventPublisher,
	metrics ports.InferenceMetrics,
	logger *zap.Logger,
) (*ClassifierService, error) {
	if graph == nil || embedder == nil || model == nil {
		return nil, fmt.Errorf("graph, embedder and model are required")
	}
	if embedder.Dim() != graph.Dim() {
		return nil, fmt.Errorf("embedder produces %d dimensions, graph has %d", embedder.Dim(), graph.Dim())
	}
	if model.InputDim() != graph.Dim() {
		return nil, fmt.Errorf("model expects %d input features, graph has %d", model.InputDim(), graph.Dim())
	}
	if classes.Len() == 0 {
		return nil, fmt.Errorf("class table is empty")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &ClassifierService{
		graph:     graph,
		embedder:  embedder,
		model:     model,
		classes:   classes,
		topK:      topK,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		tracer:    otel.Tracer("paper-classifier/classifier"),
	}
	if metrics != nil {
		metrics.SetGraphSize(graph.NodeCount(), graph.EdgeCount())
	}
	return s, nil
}

// Predict adds the paper to the graph and returns its top classes. The
// graph only grows when the whole pipeline succeeds.
func (s *ClassifierService) Predict(ctx context.Context, rawTitle string) (*Classification, error) {
	ctx, span := s.tracer.Start(ctx, "ClassifierService.Predict")
	defer span.End()

	result, err := s.predict(ctx, rawTitle)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.recordFailure(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("graph.node_index", result.Attachment.NodeIndex),
		attribute.Int("graph.attached_to", result.Attachment.AttachedTo),
		attribute.String("prediction.top_class", result.Predictions[0].Label),
	)
	return result, nil
}

func (s *ClassifierService) predict(ctx context.Context, rawTitle string) (*Classification, error) {
	title, err := valueobjects.NewTitle(rawTitle)
	if err != nil {
		return nil, err
	}

	vector, err := s.embedder.Embed(ctx, title.String())
	if err != nil {
		if ctxErr := contextError(err); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, pkgerrors.NewInternalError("failed to embed title").WithCause(err)
	}
	if len(vector) != s.graph.Dim() {
		return nil, pkgerrors.NewInconsistencyError(
			pkgerrors.CodeFeatureDimMismatch,
			fmt.Sprintf("embedding has %d dimensions, graph expects %d", len(vector), s.graph.Dim()),
		)
	}

	paper := entities.NewPaper(title)
	var predictions []valueobjects.Prediction
	var forward time.Duration

	attachment, err := s.graph.Extend(ctx, paper, vector, func(ctx context.Context, snap aggregates.Snapshot) error {
		_, span := s.tracer.Start(ctx, "gcn.Forward", trace.WithAttributes(
			attribute.Int("graph.nodes", snap.Nodes),
			attribute.Int("graph.edges", snap.EdgeCount()),
		))
		defer span.End()

		start := time.Now()
		logits, err := s.model.Forward(ctx, snap)
		forward = time.Since(start)
		if err != nil {
			if ctxErr := contextError(err); ctxErr != nil {
				return ctxErr
			}
			if appErr := pkgerrors.GetAppError(err); appErr != nil {
				return appErr
			}
			return pkgerrors.NewInternalError("forward pass failed").WithCause(err)
		}

		predictions, err = s.rank(logits, snap.NewIndex)
		return err
	})
	if err != nil {
		if ctxErr := contextError(err); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	result := &Classification{
		Paper:       *paper,
		Attachment:  attachment,
		Predictions: predictions,
	}

	s.logger.Info("Paper classified",
		zap.String("paperID", paper.ID.String()),
		zap.Int("nodeIndex", attachment.NodeIndex),
		zap.Int("attachedTo", attachment.AttachedTo),
		zap.Float64("similarity", attachment.Similarity),
		zap.String("topClass", predictions[0].Label),
		zap.Duration("forward", forward),
		zap.Bool("graphReset", attachment.Reset),
	)

	if s.metrics != nil {
		s.metrics.RecordPrediction(predictions[0].Label, attachment.Similarity, forward)
		if attachment.Reset {
			s.metrics.RecordGraphReset()
		}
		s.metrics.SetGraphSize(s.graph.NodeCount(), s.graph.EdgeCount())
	}

	s.publish(ctx, result)
	return result, nil
}

// rank applies softmax to the new node's logits and keeps the top classes
func (s *ClassifierService) rank(logits *mat.Dense, newIndex int) ([]valueobjects.Prediction, error) {
	if logits == nil {
		return nil, pkgerrors.NewInternalError("forward pass returned no output")
	}
	rows, _ := logits.Dims()
	if newIndex < 0 || newIndex >= rows {
		return nil, pkgerrors.NewInconsistencyError(
			pkgerrors.CodeNodeIndexOutOfRange,
			"node index out of range",
		).WithDetails(map[string]interface{}{"node_index": newIndex, "rows": rows})
	}

	probs := domainservices.Softmax(logits.RawRowView(newIndex))
	if len(probs) != s.classes.Len() {
		return nil, pkgerrors.NewInconsistencyError(
			pkgerrors.CodeClassCountMismatch,
			"class count mismatch",
		).WithDetails(map[string]interface{}{"outputs": len(probs), "classes": s.classes.Len()})
	}

	ranked := domainservices.TopK(probs, s.topK)
	predictions := make([]valueobjects.Prediction, len(ranked))
	for i, id := range ranked {
		label, _ := s.classes.Label(id)
		predictions[i] = valueobjects.Prediction{
			ClassID:     id,
			Label:       label,
			Probability: probs[id],
		}
	}
	return predictions, nil
}

// publish emits the events this request's extension raised followed by
// the completion event. Failures are logged and never reach the caller.
func (s *ClassifierService) publish(ctx context.Context, result *Classification) {
	if s.publisher == nil {
		return
	}
	pending := append([]events.DomainEvent(nil), result.Attachment.Events...)

	ranked := make([]events.RankedClass, len(result.Predictions))
	for i, p := range result.Predictions {
		ranked[i] = events.RankedClass{Class: p.Label, Confidence: p.Confidence()}
	}
	pending = append(pending, events.NewPredictionCompleted(
		result.Paper.ID.String(),
		result.Paper.Title.String(),
		result.Attachment.NodeIndex,
		result.Attachment.AttachedTo,
		result.Attachment.Similarity,
		ranked,
		time.Now().UTC(),
	))

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.PublishBatch(ctx, pending); err != nil {
		s.logger.Warn("Failed to publish classifier events",
			zap.Error(err),
			zap.Int("events", len(pending)),
		)
	}
}

func (s *ClassifierService) recordFailure(err error) {
	if s.metrics == nil {
		return
	}
	kind := "canceled"
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		kind = string(appErr.Type)
	} else if contextError(err) == nil {
		kind = string(pkgerrors.ErrorTypeInternal)
	}
	s.metrics.RecordFailure(kind)
}

// GraphStats returns the current node and edge counts
func (s *ClassifierService) GraphStats() (nodes, edges int) {
	return s.graph.NodeCount(), s.graph.EdgeCount()
}

// UpdateLimits changes the graph growth limits at runtime
func (s *ClassifierService) UpdateLimits(limits aggregates.Limits) error {
	if err := s.graph.SetLimits(limits); err != nil {
		return err
	}
	s.logger.Info("Graph limits updated",
		zap.Int("maxAddedNodes", limits.MaxAddedNodes),
		zap.String("overflowPolicy", string(limits.Policy)),
	)
	return nil
}

// Classes returns the class table used for labels
func (s *ClassifierService) Classes() valueobjects.ClassTable {
	return s.classes
}

func contextError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
