package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-content/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-content/pkg/middleware"
	"github.com/ekaya-inc/ekaya-content/pkg/services"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// ValidationErrorBody is the 400 response for rejected input.
type ValidationErrorBody struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// writeServiceError maps a service error onto an HTTP response. Unexpected
// errors are logged with the request ID and reported as 500 with the given message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, internalMessage string, logger *zap.Logger, fields ...zap.Field) {
	var verr *services.ValidationError
	var writeErr error

	switch {
	case errors.As(err, &verr):
		writeErr = WriteJSON(w, http.StatusBadRequest, ValidationErrorBody{
			Error:   "validation_error",
			Message: "Request validation failed",
			Details: verr.Details,
		})
	case errors.Is(err, apperrors.ErrNotFound):
		writeErr = ErrorResponse(w, http.StatusNotFound, "not_found", "Resource not found")
	case errors.Is(err, apperrors.ErrInvalidTransition):
		writeErr = ErrorResponse(w, http.StatusConflict, "invalid_status", "Project is still generating")
	case errors.Is(err, apperrors.ErrQueueFull):
		w.Header().Set("Retry-After", "30")
		writeErr = ErrorResponse(w, http.StatusServiceUnavailable, "queue_full", "Generation queue is full, please retry later")
	case errors.Is(err, apperrors.ErrQueueClosed):
		writeErr = ErrorResponse(w, http.StatusServiceUnavailable, "shutting_down", "Server is shutting down")
	default:
		fields = append(fields,
			zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
			zap.Error(err))
		logger.Error(internalMessage, fields...)
		writeErr = ErrorResponse(w, http.StatusInternalServerError, "internal_error", internalMessage)
	}

	if writeErr != nil {
		logger.Error("Failed to write error response", zap.Error(writeErr))
	}
}

// decodeJSON decodes a request body capped at maxBytes, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dest any, logger *zap.Logger) bool {
	return decodeBody(w, r, maxBytes, dest, false, logger)
}

// decodeOptionalJSON is decodeJSON for bodies that may be empty.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dest any, logger *zap.Logger) bool {
	return decodeBody(w, r, maxBytes, dest, true, logger)
}

func decodeBody(w http.ResponseWriter, r *http.Request, maxBytes int64, dest any, optional bool, logger *zap.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	err := json.NewDecoder(r.Body).Decode(dest)
	if optional && errors.Is(err, io.EOF) {
		return true
	}
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return false
	}
	return true
}
