package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/roadgraph/roadgraph-backend/internal/repository"
	"github.com/roadgraph/roadgraph-backend/internal/topology"
)

// APIError represents a structured API error response
type APIError struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Error codes for common scenarios
const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeConflict       = "CONFLICT"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)

// respondError sends a structured error response.
func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIError{Error: message, Code: code, Message: message})
}

// respondServiceError maps the service error taxonomy to HTTP statuses:
// invalid topology input and rejected parameters to 400, missing or empty
// results to 404, version allocation races to 409, everything else to 500.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, topology.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		respondError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, repository.ErrConflict):
		respondError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
	}
}
