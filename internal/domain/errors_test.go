package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	withCause := NewAppError(CodeNotFound, "contact not found", errors.New("record not found"))
	if got := withCause.Error(); got != "contact not found: record not found" {
		t.Errorf("Error() = %q", got)
	}
	if got := NewAppError(CodeNotFound, "contact not found", nil).Error(); got != "contact not found" {
		t.Errorf("Error() = %q", got)
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("disk full")
	if !errors.Is(NewAppError(CodeInternal, "database error", inner), inner) {
		t.Error("errors.Is should reach the wrapped cause")
	}
	if NewAppError(CodeInternal, "no cause", nil).Unwrap() != nil {
		t.Error("Unwrap() should be nil without a cause")
	}
}

func TestHasCode(t *testing.T) {
	notFound := NewAppError(CodeNotFound, "domain not found", nil)
	wrapped := fmt.Errorf("load sender: %w", notFound)

	checks := []struct {
		name string
		fn   func(error) bool
		err  error
		want bool
	}{
		{"not found", IsNotFound, notFound, true},
		{"not found wrapped", IsNotFound, wrapped, true},
		{"already exists on not found", IsAlreadyExists, wrapped, false},
		{"validation", IsValidation, NewAppError(CodeValidation, "bad", nil), true},
		{"unauthorized", IsUnauthorized, NewAppError(CodeUnauthorized, "token expired", nil), true},
		{"plain error", IsNotFound, errors.New("not found"), false},
		{"nil", IsNotFound, nil, false},
	}
	for _, tt := range checks {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.err); got != tt.want {
				t.Errorf("got %v; want %v", got, tt.want)
			}
		})
	}
}

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NewAppError(CodeNotFound, "x", nil), http.StatusNotFound},
		{"already exists", NewAppError(CodeAlreadyExists, "x", nil), http.StatusConflict},
		{"validation", NewAppError(CodeValidation, "x", nil), http.StatusBadRequest},
		{"internal", NewAppError(CodeInternal, "x", nil), http.StatusInternalServerError},
		{"unauthorized", NewAppError(CodeUnauthorized, "x", nil), http.StatusUnauthorized},
		{"wrapped", fmt.Errorf("ctx: %w", NewAppError(CodeNotFound, "x", nil)), http.StatusNotFound},
		{"unknown code", NewAppError(unmappedCode, "x", nil), http.StatusInternalServerError},
		{"plain", errors.New("plain"), http.StatusInternalServerError},
		{"nil", nil, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Errorf("HTTPStatusCode() = %d; want %d", got, tt.want)
			}
		})
	}
}

const unmappedCode ErrorCode = 99
