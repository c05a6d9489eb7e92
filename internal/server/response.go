package server

import (
	"encoding/json"
	"net/http"

	"github.com/adamancini/nudge/internal/logging"
)

// Error codes returned in the error envelope.
const (
	ErrCodeBadRequest  = "BAD_REQUEST"
	ErrCodeNotFound    = "NOT_FOUND"
	ErrCodeUnavailable = "MANIFEST_UNAVAILABLE"
	ErrCodeInternal    = "INTERNAL_ERROR"
)

// ErrorResponse is the error envelope:
// {"error": {"code": "ERROR_CODE", "message": "Human readable message"}}
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logging.Warn("failed to encode response", "error", err)
		}
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}
