package common

import (
	"errors"
	"net/http"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// ErrValidation reports one or more invalid fields. Fields lists every
// offending field, never just the first.
func ErrValidation(message string, fields []string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: message, HTTPStatus: http.StatusBadRequest, Details: map[string]any{"fields": fields}}
}

// ErrUnauthenticated reports a request with no caller identity.
func ErrUnauthenticated(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return &AppError{Code: "UNAUTHENTICATED", Message: message, HTTPStatus: http.StatusUnauthorized}
}

// ErrForbidden reports a caller lacking rights. The message is intentionally
// generic so resource existence is not leaked.
func ErrForbidden() *AppError {
	return &AppError{Code: "FORBIDDEN", Message: "not authorized", HTTPStatus: http.StatusForbidden}
}

// ErrNotFound reports an unresolvable resource id.
func ErrNotFound(message string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: message, HTTPStatus: http.StatusNotFound}
}

// ErrConflict reports a uniqueness or state conflict.
func ErrConflict(code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: http.StatusConflict, Err: err}
}

// ErrExternalService reports an upstream dependency failure.
func ErrExternalService(message string, err error) *AppError {
	return &AppError{Code: "EXTERNAL_SERVICE_FAILURE", Message: message, HTTPStatus: http.StatusBadGateway, Err: err}
}
