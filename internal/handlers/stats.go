package handlers

import (
	"net/http"

	"research-rag/internal/contextutil"
	"research-rag/internal/retrieval"
)

// StatsHandler handles HTTP requests for corpus statistics.
type StatsHandler struct {
	searcher retrieval.Searcher
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(searcher retrieval.Searcher) *StatsHandler {
	return &StatsHandler{searcher: searcher}
}

// ServeHTTP handles HTTP requests for corpus statistics.
//
// swagger:route GET /api/v1/stats corpusStats
//
// # Corpus statistics
//
// Returns document and chunk counts, the embedding dimension and the
// distribution of chunks by publication year.
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Corpus summary
//	  schema:
//	    "$ref": "#/definitions/Stats"
//	'500':
//	  description: Corpus could not be loaded
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stats, err := h.searcher.Stats(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to compute corpus stats", "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, stats)
}
