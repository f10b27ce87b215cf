package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Quan024/Phan-loai-bao/application/services"
	"github.com/Quan024/Phan-loai-bao/pkg/api"
	pkgerrors "github.com/Quan024/Phan-loai-bao/pkg/errors"
	"github.com/Quan024/Phan-loai-bao/pkg/utils"

	"go.uber.org/zap"
)

// DefaultMaxRequestBytes caps the /predict body when no limit is configured
const DefaultMaxRequestBytes = 1 << 20

// Classifier is the application service behind /predict
type Classifier interface {
	Predict(ctx context.Context, title string) (*services.Classification, error)
}

// PredictHandler handles classification requests
type PredictHandler struct {
	classifier   Classifier
	errorHandler *pkgerrors.ErrorHandler
	maxBytes     int64
	logger       *zap.Logger
}

// NewPredictHandler creates a new predict handler
func NewPredictHandler(
	classifier Classifier,
	errorHandler *pkgerrors.ErrorHandler,
	maxBytes int64,
	logger *zap.Logger,
) *PredictHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestBytes
	}
	return &PredictHandler{
		classifier:   classifier,
		errorHandler: errorHandler,
		maxBytes:     maxBytes,
		logger:       logger,
	}
}

// Predict handles POST /predict
//
// @Summary Classify a paper title
// @Description Adds the paper to the citation graph and returns its most likely topics
// @Tags predict
// @Accept json
// @Produce json
// @Param request body api.PredictRequest true "Paper title"
// @Success 200 {object} api.PredictResponse
// @Failure 400 {object} errors.ErrorResponse "Empty or malformed title"
// @Failure 408 {object} errors.ErrorResponse "Deadline exceeded"
// @Failure 413 {object} errors.ErrorResponse "Request body too large"
// @Failure 500 {object} errors.ErrorResponse "Internal inconsistency"
// @Failure 503 {object} errors.ErrorResponse "Graph full or circuit open"
// @Router /predict [post]
func (h *PredictHandler) Predict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	var req api.PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorHandler.Handle(w, r, pkgerrors.NewPayloadTooLargeError(tooLarge.Limit))
			return
		}
		h.errorHandler.Handle(w, r, pkgerrors.NewValidationError("Invalid request body").WithCause(err))
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		h.errorHandler.Handle(w, r, pkgerrors.NewValidationError(err.Error()))
		return
	}

	result, err := h.classifier.Predict(r.Context(), req.Title)
	if err != nil {
		if ctxErr := pkgerrors.FromContext(err, "predict"); ctxErr != nil {
			err = ctxErr
		}
		h.errorHandler.Handle(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, toPredictResponse(result))
}

func toPredictResponse(result *services.Classification) api.PredictResponse {
	items := make([]api.PredictionItem, len(result.Predictions))
	for i, p := range result.Predictions {
		items[i] = api.PredictionItem{
			Class:      p.Label,
			Confidence: p.Confidence(),
		}
	}
	return api.PredictResponse{
		Title:       result.Paper.Title.String(),
		Predictions: items,
	}
}
