package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error code constants. Handlers and repositories use these constants
// instead of hardcoded strings.
const (
	// Validation (400)
	ErrCodeValidationMissingField  ErrorCode = "validation_missing_required_field"
	ErrCodeValidationInvalidType   ErrorCode = "validation_invalid_plant_type"
	ErrCodeValidationInvalidEvent  ErrorCode = "validation_invalid_event_type"
	ErrCodeValidationInvalidRange  ErrorCode = "validation_invalid_date_range"
	ErrCodeValidationBody          ErrorCode = "validation_invalid_body"
	ErrCodeValidationWateringFreq  ErrorCode = "validation_invalid_watering_frequency"
	ErrCodeValidationNoDetections  ErrorCode = "validation_no_detections"

	// Not Found (404)
	ErrCodeNotFoundPlant ErrorCode = "not_found_plant"
	ErrCodeNotFoundEvent ErrorCode = "not_found_event"

	// Conflict (409)
	ErrCodeConflictCompleted ErrorCode = "conflict_event_already_completed"

	// Soft degradation: the condition label is unknown to the knowledge base.
	// Non-fatal by design; callers fall back to a generic treatment event.
	ErrCodeKnowledgeBaseMiss ErrorCode = "knowledge_base_miss"

	// Internal/Upstream (500/502)
	ErrCodeInternalStore      ErrorCode = "internal_store_error"
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
	ErrCodeReminderDispatch   ErrorCode = "upstream_reminder_dispatch_failed"
	ErrCodeArchiveSink        ErrorCode = "upstream_archive_sink_failed"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Returns 500 for unrecognized error codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound
	case strings.HasPrefix(s, "conflict_"):
		return http.StatusConflict
	case c == ErrCodeKnowledgeBaseMiss:
		// Soft failure; surfaces only in diagnostics, never as a response.
		return http.StatusOK
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway
	case strings.HasPrefix(s, "internal_"):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// AppError is the standard application error type. All domain and handler
// errors are expressed as AppError to enable consistent formatting, HTTP
// status mapping, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// NewAppError creates a new AppError with the given code, message, and
// optional underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsNotFound reports whether err is an AppError carrying a not_found code.
func IsNotFound(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return strings.HasPrefix(string(appErr.Code), "not_found_")
}
