package domain

import (
	"errors"
	"net/http"
)

// ErrorCode classifies an AppError. Every code answers with one HTTP status.
type ErrorCode int

const (
	CodeNotFound ErrorCode = iota + 1
	CodeAlreadyExists
	CodeValidation
	CodeInternal
	CodeUnauthorized
)

var codeStatus = map[ErrorCode]int{
	CodeNotFound:      http.StatusNotFound,
	CodeAlreadyExists: http.StatusConflict,
	CodeValidation:    http.StatusBadRequest,
	CodeInternal:      http.StatusInternalServerError,
	CodeUnauthorized:  http.StatusUnauthorized,
}

// Status is the HTTP status the code is reported with. Unknown codes are 500.
func (c ErrorCode) Status() int {
	if s, ok := codeStatus[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// AppError is a failure the API reports to its caller. Message is shown to
// the user as the envelope payload; Err stays server side.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates an AppError wrapping err, which may be nil.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// HasCode reports whether err is or wraps an AppError with code.
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func IsNotFound(err error) bool      { return HasCode(err, CodeNotFound) }
func IsAlreadyExists(err error) bool { return HasCode(err, CodeAlreadyExists) }
func IsValidation(err error) bool    { return HasCode(err, CodeValidation) }
func IsUnauthorized(err error) bool  { return HasCode(err, CodeUnauthorized) }

// HTTPStatusCode maps err to a response status. Errors that are not
// AppErrors are internal.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code.Status()
	}
	return http.StatusInternalServerError
}
