package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Quan024/Phan-loai-bao/pkg/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStats struct {
	nodes, edges int
}

func (s fixedStats) GraphStats() (int, int) { return s.nodes, s.edges }

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(nil).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp api.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.NotEmpty(t, resp.Timestamp)
}

func TestReady(t *testing.T) {
	tests := []struct {
		name   string
		stats  GraphStats
		status int
	}{
		{name: "loaded graph", stats: fixedStats{nodes: 2708, edges: 10556}, status: http.StatusOK},
		{name: "empty graph", stats: fixedStats{}, status: http.StatusServiceUnavailable},
		{name: "no graph", stats: nil, status: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(tt.stats).Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	rec := httptest.NewRecorder()
	NewHealthHandler(fixedStats{nodes: 2708, edges: 10556}).Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	var resp api.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, 2708, resp.Nodes)
	assert.Equal(t, 10556, resp.Edges)
}
