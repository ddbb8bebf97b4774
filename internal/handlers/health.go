package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"rentalsearch-ai/internal/contextutil"
	"rentalsearch-ai/internal/indexer"
	"rentalsearch-ai/internal/rag"
)

// PipelineStatus reports the state of the retrieval pipeline.
// rag.Engine satisfies it.
type PipelineStatus interface {
	Status() rag.Status
	Stats() *indexer.BuildStats
	Count(ctx context.Context) (int, error)
}

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	pipeline           PipelineStatus
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(pipeline PipelineStatus) *HealthHandler {
	return &HealthHandler{
		pipeline:           pipeline,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	// Overall health status: "healthy", "initializing" or "unhealthy"
	Status string `json:"status"`

	// Pipeline lifecycle state: "uninitialized" or "ready"
	Pipeline string `json:"pipeline"`

	// Number of indexed segments
	Entries int `json:"entries"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Statistics of the last successful build
	Stats *indexer.BuildStats `json:"stats,omitempty"`

	// List of issues (only present if status is not healthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP handles GET /api/health.
// Returns 200 OK once the index is built, 503 Service Unavailable before that or when the index cannot be read.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	pipelineStatus := h.pipeline.Status()
	response := HealthResponse{
		Status:    "healthy",
		Pipeline:  pipelineStatus.String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Stats:     h.pipeline.Stats(),
	}

	if pipelineStatus != rag.StatusReady {
		response.Status = "initializing"
		response.Issues = append(response.Issues, "index_not_built")
	} else {
		count, err := h.pipeline.Count(checkCtx)
		if err != nil {
			logger.WarnContext(ctx, "vector index health check failed", "error", err)
			response.Status = "unhealthy"
			response.Issues = append(response.Issues, "vector_index_unavailable")
		}
		response.Entries = count
	}

	httpStatus := http.StatusOK
	if len(response.Issues) > 0 {
		httpStatus = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.ErrorContext(ctx, "failed to encode health response", "error", err)
	}
}
