package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds shared by every service. AppError values wrap exactly one of
// these so callers can branch with errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrAuthentication     = errors.New("authentication failed")
	ErrExternalService    = errors.New("external service failure")
	ErrInvariantViolation = errors.New("invariant violation")
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
		return e.Message + ": " + e.Err.Error()
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

// WithDetails attaches response details and returns the same error.
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

func kindErr(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}

// Validation reports bad input the caller can correct.
func Validation(code, message string) *AppError {
	return NewAppError(code, message, http.StatusBadRequest, ErrValidation)
}

// NotFound reports a missing order, coupon, item or location.
func NotFound(code, message string) *AppError {
	return NewAppError(code, message, http.StatusNotFound, ErrNotFound)
}

// Forbidden reports a status-locked mutation or cross-tenant access.
func Forbidden(code, message string) *AppError {
	return NewAppError(code, message, http.StatusForbidden, ErrForbidden)
}

// Conflict reports a lost optimistic-concurrency race or an exhausted limit.
func Conflict(code, message string) *AppError {
	return NewAppError(code, message, http.StatusConflict, ErrConflict)
}

// Authentication reports a signature or credential mismatch.
func Authentication(code, message string) *AppError {
	return NewAppError(code, message, http.StatusUnauthorized, ErrAuthentication)
}

// ExternalService reports a failed call to a third party after retries.
func ExternalService(code, message string, cause error) *AppError {
	return NewAppError(code, message, http.StatusBadGateway, kindErr(ErrExternalService, cause))
}

// InvariantViolation reports a monetary aggregate that would become inconsistent.
func InvariantViolation(code, message string, cause error) *AppError {
	return NewAppError(code, message, http.StatusInternalServerError, kindErr(ErrInvariantViolation, cause))
}
