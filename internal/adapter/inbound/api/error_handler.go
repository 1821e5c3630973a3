package api

import (
	"errors"
	"net/http"

	"medinotes/internal/application/common/slogger"
	"medinotes/internal/application/dto"
	"medinotes/internal/domain/errors/domain"
)

// ErrorHandler maps service errors to HTTP responses.
type ErrorHandler interface {
	HandleValidationError(w http.ResponseWriter, r *http.Request, err error)
	HandleServiceError(w http.ResponseWriter, r *http.Request, err error)
}

// errorMapping binds a domain error to its HTTP representation.
type errorMapping struct {
	LogMessage      string
	HTTPStatus      int
	ErrorCode       dto.ErrorCode
	ResponseMessage string
}

// DefaultErrorHandler implements ErrorHandler with a fixed table of
// domain error mappings. Unmapped errors become 500s with the error
// detail kept out of the response body.
type DefaultErrorHandler struct {
	mappings map[error]errorMapping
}

// NewDefaultErrorHandler creates the standard error handler.
func NewDefaultErrorHandler() ErrorHandler {
	return &DefaultErrorHandler{mappings: map[error]errorMapping{
		domain.ErrNoteNotFound: {
			LogMessage:      "Note not found",
			HTTPStatus:      http.StatusNotFound,
			ErrorCode:       dto.ErrorCodeNoteNotFound,
			ResponseMessage: "Note not found",
		},
		domain.ErrTaskNotFound: {
			LogMessage:      "Task not found",
			HTTPStatus:      http.StatusNotFound,
			ErrorCode:       dto.ErrorCodeJobNotFound,
			ResponseMessage: "Job not found",
		},
		domain.ErrQueueFull: {
			LogMessage:      "Queue at capacity, job rejected",
			HTTPStatus:      http.StatusServiceUnavailable,
			ErrorCode:       dto.ErrorCodeQueueFull,
			ResponseMessage: "Processing queue is full, retry later",
		},
		domain.ErrPoolStopped: {
			LogMessage:      "Worker pool not running",
			HTTPStatus:      http.StatusServiceUnavailable,
			ErrorCode:       dto.ErrorCodeServiceUnavailable,
			ResponseMessage: "Service is shutting down",
		},
		domain.ErrInvalidInput: {
			LogMessage:      "Invalid request input",
			HTTPStatus:      http.StatusBadRequest,
			ErrorCode:       dto.ErrorCodeInvalidRequest,
			ResponseMessage: "Invalid request",
		},
		domain.ErrEmptyNoteText: {
			LogMessage:      "Note has no text",
			HTTPStatus:      http.StatusBadRequest,
			ErrorCode:       dto.ErrorCodeInvalidRequest,
			ResponseMessage: "Note text is empty",
		},
	}}
}

// HandleValidationError writes a 400 with the validation detail.
func (h *DefaultErrorHandler) HandleValidationError(w http.ResponseWriter, r *http.Request, err error) {
	slogger.Warn(r.Context(), "Request validation failed", slogger.Fields{
		"path":  r.URL.Path,
		"error": err.Error(),
	})
	response := dto.NewErrorResponse(dto.ErrorCodeInvalidRequest, err.Error(), nil)
	_ = WriteJSON(w, http.StatusBadRequest, response)
}

// HandleServiceError maps a service error onto its configured response,
// falling back to a generic 500.
func (h *DefaultErrorHandler) HandleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for domainErr, mapping := range h.mappings {
		if errors.Is(err, domainErr) {
			slogger.Warn(r.Context(), mapping.LogMessage, slogger.Fields{
				"path":  r.URL.Path,
				"error": err.Error(),
			})
			response := dto.NewErrorResponse(mapping.ErrorCode, mapping.ResponseMessage, nil)
			_ = WriteJSON(w, mapping.HTTPStatus, response)
			return
		}
	}

	slogger.ErrorWithError(r.Context(), err, "Unhandled service error", slogger.Fields{
		"path": r.URL.Path,
	})
	response := dto.NewErrorResponse(dto.ErrorCodeInternalError, "An internal error occurred", nil)
	_ = WriteJSON(w, http.StatusInternalServerError, response)
}
