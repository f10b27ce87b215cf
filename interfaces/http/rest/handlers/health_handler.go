package handlers

import (
	"net/http"

	"github.com/Quan024/Phan-loai-bao/pkg/api"
	"github.com/Quan024/Phan-loai-bao/pkg/utils"
)

// GraphStats reports the size of the live graph
type GraphStats interface {
	GraphStats() (nodes, edges int)
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	stats GraphStats
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(stats GraphStats) *HealthHandler {
	return &HealthHandler{stats: stats}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, api.StatusResponse{
		Status:    "healthy",
		Timestamp: utils.NowRFC3339(),
	})
}

// Ready handles GET /ready. The service is ready once the graph holds nodes.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		api.Error(w, http.StatusServiceUnavailable, "graph not loaded")
		return
	}

	nodes, edges := h.stats.GraphStats()
	status, code := "ready", http.StatusOK
	if nodes == 0 {
		status, code = "not ready", http.StatusServiceUnavailable
	}
	api.Success(w, code, api.StatusResponse{
		Status:    status,
		Nodes:     nodes,
		Edges:     edges,
		Timestamp: utils.NowRFC3339(),
	})
}
