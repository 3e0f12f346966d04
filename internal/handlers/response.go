package handlers

import (
	"encoding/json"
	"net/http"

	"research-rag/internal/contextutil"
)

// ErrorResponse represents an error response.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	Error string `json:"error"`

	// Request ID to quote when reporting the failure
	RequestID string `json:"request_id,omitempty"`
}

// writeJSON encodes v with the given status. Encoding failures can only be logged
// because the header has already been sent.
func writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ctx := r.Context()
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError writes an ErrorResponse.
func writeError(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	writeJSON(w, r, statusCode, ErrorResponse{
		Error:     message,
		RequestID: contextutil.RequestIDFromContext(r.Context()),
	})
}
