package api

// PredictRequest is the expected body for a POST /predict request.
type PredictRequest struct {
	Title string `json:"title" validate:"required"`
}

// PredictionItem is one ranked class in a prediction response.
type PredictionItem struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

// PredictResponse is the API representation of a classification result.
type PredictResponse struct {
	Title       string           `json:"title"`
	Predictions []PredictionItem `json:"predictions"`
}

// StatusResponse is returned by the health and readiness probes.
type StatusResponse struct {
	Status    string `json:"status"`
	Nodes     int    `json:"nodes,omitempty"`
	Edges     int    `json:"edges,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}
