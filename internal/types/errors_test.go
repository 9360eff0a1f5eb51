package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

// TestAppErrorImplementsError verifies that *AppError satisfies the error interface.
func TestAppErrorImplementsError(t *testing.T) {
	var _ error = (*AppError)(nil)
}

// TestAppErrorErrorFormat verifies the Error() method produces "code: message".
func TestAppErrorErrorFormat(t *testing.T) {
	appErr := &AppError{
		Code:    ErrCodeNotFoundPlant,
		Message: "plant not found",
	}

	expected := "not_found_plant: plant not found"
	if appErr.Error() != expected {
		t.Errorf("Error() = %q, want %q", appErr.Error(), expected)
	}
}

// TestAppErrorUnwrap verifies the error chain support via Unwrap.
func TestAppErrorUnwrap(t *testing.T) {
	underlying := errors.New("connection refused")
	appErr := NewAppError(ErrCodeInternalStore, "failed to query plants", underlying)

	if appErr.Unwrap() != underlying {
		t.Errorf("Unwrap() returned unexpected error: got %v, want %v", appErr.Unwrap(), underlying)
	}
}

// TestAppErrorErrorsAs verifies that errors.As can extract AppError from a chain.
func TestAppErrorErrorsAs(t *testing.T) {
	appErr := NewAppError(ErrCodeConflictCompleted, "event already completed", nil)
	wrappedErr := fmt.Errorf("handler failed: %w", appErr)

	var target *AppError
	if !errors.As(wrappedErr, &target) {
		t.Fatal("errors.As should find AppError in the chain")
	}
	if target.Code != ErrCodeConflictCompleted {
		t.Errorf("extracted Code = %q, want %q", target.Code, ErrCodeConflictCompleted)
	}
}

// TestErrorCodeHTTPStatus verifies the prefix-based status mapping.
func TestErrorCodeHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidationMissingField, http.StatusBadRequest},
		{ErrCodeValidationNoDetections, http.StatusBadRequest},
		{ErrCodeNotFoundPlant, http.StatusNotFound},
		{ErrCodeNotFoundEvent, http.StatusNotFound},
		{ErrCodeConflictCompleted, http.StatusConflict},
		{ErrCodeInternalStore, http.StatusInternalServerError},
		{ErrCodeReminderDispatch, http.StatusBadGateway},
		{ErrCodeArchiveSink, http.StatusBadGateway},
		{ErrorCode("something_unmapped"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		if got := tc.code.HTTPStatus(); got != tc.want {
			t.Errorf("HTTPStatus(%q) = %d, want %d", tc.code, got, tc.want)
		}
	}
}

// TestIsNotFound verifies not-found detection across wrapping and codes.
func TestIsNotFound(t *testing.T) {
	notFound := NewAppError(ErrCodeNotFoundEvent, "care event not found", nil)
	if !IsNotFound(notFound) {
		t.Error("IsNotFound should be true for not_found_event")
	}
	if !IsNotFound(fmt.Errorf("loading event: %w", notFound)) {
		t.Error("IsNotFound should see through wrapping")
	}
	if IsNotFound(NewAppError(ErrCodeInternalStore, "boom", nil)) {
		t.Error("IsNotFound should be false for internal errors")
	}
	if IsNotFound(errors.New("plain error")) {
		t.Error("IsNotFound should be false for non-AppError values")
	}
}
