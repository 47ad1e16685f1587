// Package httputil writes the JSON error bodies shared by every handler.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/kagimori/internal/errors"
)

// ErrorResponse represents a structured error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// errorMapping ties a sentinel to its status and body. exposeDetail copies the
// wrapped error text into Message; other entries use the fixed message.
type errorMapping struct {
	sentinel     error
	status       int
	code         string
	message      string
	exposeDetail bool
}

// errorMappings is checked in order; the first sentinel that matches wins.
var errorMappings = []errorMapping{
	{apperrors.ErrInternal, http.StatusInternalServerError, "internal_error", "An internal error occurred", false},
	{apperrors.ErrNotFound, http.StatusNotFound, "not_found", "The requested key or version was not found", false},
	{apperrors.ErrConflict, http.StatusConflict, "conflict", "A concurrent request changed the key, retry the operation", false},
	{apperrors.ErrInvalidInput, http.StatusUnprocessableEntity, "invalid_input", "", true},
	{apperrors.ErrUnavailable, http.StatusServiceUnavailable, "unavailable", "The storage backend is unavailable", false},
}

// StatusForError returns the HTTP status HandleErrorGin would write for err.
func StatusForError(err error) int {
	status, _ := mapError(err)
	return status
}

func mapError(err error) (int, ErrorResponse) {
	for _, m := range errorMappings {
		if !apperrors.Is(err, m.sentinel) {
			continue
		}
		message := m.message
		if m.exposeDetail {
			message = err.Error()
		}
		return m.status, ErrorResponse{Error: m.code, Message: message}
	}
	// Internal errors may carry storage paths or key ids; keep them out of the body.
	return http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	}
}

// HandleErrorGin maps domain errors to HTTP status codes and writes a JSON response.
// Server-side failures are logged at error level, client mistakes at warn.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	statusCode, errorResponse := mapError(err)

	if logger != nil {
		level := slog.LevelWarn
		if statusCode >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.LogAttrs(c.Request.Context(), level, "request failed",
			slog.Int("status_code", statusCode),
			slog.String("error_code", errorResponse.Error),
			slog.Any("error", err),
		)
	}

	c.JSON(statusCode, errorResponse)
}

// HandleBadRequestGin writes a 400 Bad Request response for malformed JSON or parameters.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("bad request", slog.Any("error", err))
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "bad_request",
		Message: err.Error(),
	})
}

// HandleValidationErrorGin writes a 422 Unprocessable Entity response for validation errors.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("validation failed", slog.Any("error", err))
	}

	c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error:   "validation_error",
		Message: err.Error(),
	})
}
