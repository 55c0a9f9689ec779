// Package handlers provides HTTP handlers for the API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jeevandhara/bloodbank/internal/models"
)

// APIError represents a standard API error response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Common error codes.
const (
	ErrCodeInvalidRequest    = "invalid_request"
	ErrCodeNotFound          = "not_found"
	ErrCodeConflict          = "conflict"
	ErrCodeUnauthorized      = "unauthorized"
	ErrCodeForbidden         = "forbidden"
	ErrCodeInvalidTransition = "invalid_transition"
	ErrCodeInsufficientStock = "insufficient_stock"
	ErrCodeInternalError     = "internal_error"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// WriteError writes an error response.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, &APIError{
		Code:    code,
		Message: message,
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, message)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// WriteConflict writes a 409 Conflict response.
func WriteConflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, ErrCodeConflict, message)
}

// WriteUnauthorized writes a 401 Unauthorized response.
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, message)
}

// WriteDomainError maps a domain error to its HTTP response. Storage adapter
// detail never reaches the client.
func WriteDomainError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		WriteJSON(w, http.StatusBadRequest, &APIError{
			Code:    ErrCodeInvalidRequest,
			Message: verr.Message,
			Details: map[string]string{"field": verr.Field},
		})
	case errors.Is(err, models.ErrNotFound):
		WriteNotFound(w, "Resource not found")
	case errors.Is(err, models.ErrConflict):
		WriteConflict(w, "Resource already exists")
	case errors.Is(err, models.ErrInvalidTransition):
		WriteError(w, http.StatusConflict, ErrCodeInvalidTransition, "Requested status change is not allowed")
	case errors.Is(err, models.ErrInvalidState):
		WriteError(w, http.StatusConflict, ErrCodeInvalidTransition, "Resource is not in the required state")
	case errors.Is(err, models.ErrInsufficientStock):
		WriteError(w, http.StatusConflict, ErrCodeInsufficientStock, "Not enough matching units in stock")
	default:
		WriteInternalError(w, "An unexpected error occurred")
	}
}
