package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"research-rag/internal/contextutil"
	"research-rag/internal/retrieval"
)

// maxRequestBytes bounds the search request body. A 384-dim embedding is well under this.
const maxRequestBytes = 1 << 20

// SearchHandler handles HTTP requests for retrieval queries.
type SearchHandler struct {
	searcher retrieval.Searcher
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(searcher retrieval.Searcher) *SearchHandler {
	return &SearchHandler{searcher: searcher}
}

// SearchErrorResponse is returned for every failed search. Results is always an empty list.
//
// swagger:model SearchErrorResponse
type SearchErrorResponse struct {
	// Human-readable error. Validation failures start with "invalid input:".
	Error string `json:"error"`

	// Always empty on error
	Results []retrieval.Result `json:"results"`

	// Request ID to quote when reporting the failure
	RequestID string `json:"request_id,omitempty"`
}

// ServeHTTP handles HTTP requests for retrieval queries.
//
// swagger:route POST /api/v1/search searchChunks
//
// # Search the corpus
//
// Ranks corpus chunks by cosine similarity to the query embedding, after optional
// year, keyword and document filters, and diversifies the top results with MMR.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// parameters:
//   - in: body
//     name: body
//     required: true
//     schema:
//     "$ref": "#/definitions/Request"
//
// responses:
//
//	'200':
//	  description: Ranked results and metadata
//	  schema:
//	    "$ref": "#/definitions/Response"
//	'400':
//	  description: Invalid query embedding, topK or filter
//	  schema:
//	    "$ref": "#/definitions/SearchErrorResponse"
//	'500':
//	  description: Corpus could not be loaded
//	  schema:
//	    "$ref": "#/definitions/SearchErrorResponse"
func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		h.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req retrieval.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		h.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("%s: malformed request body", retrieval.ErrInvalidInput))
		return
	}

	resp, err := h.searcher.Search(ctx, req)
	if err != nil {
		var verr *retrieval.ValidationError
		if errors.As(err, &verr) {
			h.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("%s: %s", retrieval.ErrInvalidInput, verr.Error()))
			return
		}
		logger.ErrorContext(ctx, "search failed", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, resp)
}

func (h *SearchHandler) writeError(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	writeJSON(w, r, statusCode, SearchErrorResponse{
		Error:     message,
		Results:   []retrieval.Result{},
		RequestID: contextutil.RequestIDFromContext(r.Context()),
	})
}
