package handlers

import (
	"context"
	"net/http"
	"time"

	"research-rag/internal/contextutil"
	"research-rag/internal/corpus"
)

// CorpusStatus reports on the cached corpus. *corpus.Accessor implements it.
type CorpusStatus interface {
	Chunks(ctx context.Context) ([]corpus.Chunk, error)
	LoadedAt() time.Time
	Dimension() int
}

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	corpus             CorpusStatus
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(status CorpusStatus) *HealthHandler {
	return &HealthHandler{
		corpus:             status,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
//
// swagger:model HealthResponse
type HealthResponse struct {
	// Overall health status: "healthy" or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// Number of chunks in the cached corpus
	Chunks int `json:"chunks"`

	// Embedding dimension enforced on the corpus and on queries
	Dimension int `json:"dimension"`

	// When the cached corpus was loaded (RFC 3339), empty if never loaded
	CorpusLoadedAt string `json:"corpus_loaded_at,omitempty"`

	// List of issues (only present if status is unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP handles HTTP requests for health checks.
//
// swagger:route GET /api/health healthCheck
//
// # Health check endpoint
//
// Returns 200 OK if the corpus can be obtained, 503 Service Unavailable otherwise.
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: System is healthy
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
//	'503':
//	  description: Corpus unavailable
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
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

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    map[string]string{"corpus": "ok"},
		Dimension: h.corpus.Dimension(),
	}
	httpStatus := http.StatusOK

	chunks, err := h.corpus.Chunks(checkCtx)
	if err != nil {
		logger.WarnContext(ctx, "corpus health check failed", "error", err)
		response.Status = "unhealthy"
		response.Checks["corpus"] = "error"
		response.Issues = []string{"corpus_unavailable"}
		httpStatus = http.StatusServiceUnavailable
	}
	response.Chunks = len(chunks)
	if loadedAt := h.corpus.LoadedAt(); !loadedAt.IsZero() {
		response.CorpusLoadedAt = loadedAt.UTC().Format(time.RFC3339)
	}

	writeJSON(w, r, httpStatus, response)
}
