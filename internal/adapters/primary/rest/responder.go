// Package rest implements the HTTP handlers of the registry. It is the
// primary adapter that decodes and validates requests, calls the core
// services and maps domain errors onto status codes.
package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sean-rowe/geotemp-service/internal/core/domain"
	"github.com/sean-rowe/geotemp-service/internal/middleware"
)

// ErrorResponse represents a standardized error response structure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CreatedResponse is returned by every create endpoint.
type CreatedResponse struct {
	ID int64 `json:"id"`
}

// responder holds the response helpers shared by all handlers.
type responder struct {
	logger *zap.Logger
}

// respondWithJSON sends a JSON response with the specified status code.
func (h responder) respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// respondOK acknowledges a successful update or delete with an empty body.
func (h responder) respondOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
}

// respondWithError sends a standardized error response.
func (h responder) respondWithError(w http.ResponseWriter, status int, code, message string) {
	h.respondWithJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}

// statusFor maps a domain error code onto an HTTP status.
//
// Error mappings:
//   - REFERENCE_NOT_FOUND -> 404 Not Found
//   - UNIQUENESS_CONFLICT -> 409 Conflict
//   - INTERNAL_ERROR -> 500 Internal Server Error
//   - every other code -> 400 Bad Request
func statusFor(code string) int {
	switch code {
	case domain.CodeReferenceNotFound:
		return http.StatusNotFound
	case domain.CodeUniquenessConflict:
		return http.StatusConflict
	case domain.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// handleServiceError maps domain errors to HTTP responses. Errors that are
// not domain errors are logged and reported as 500 without details.
func (h responder) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var e *domain.ServiceError

	if errors.As(err, &e) && e.Code != domain.CodeInternal {
		h.respondWithError(w, statusFor(e.Code), e.Code, e.Message)
		return
	}

	h.logger.Error("unexpected error",
		zap.Error(err),
		zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
		zap.String("request_id", middleware.GetRequestID(r.Context())),
	)

	h.respondWithError(
		w,
		http.StatusInternalServerError,
		domain.CodeInternal,
		"An unexpected error occurred",
	)
}
