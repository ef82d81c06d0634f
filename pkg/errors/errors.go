package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType defines different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeConflict   ErrorType = "CONFLICT"
	ErrorTypeInternal   ErrorType = "INTERNAL"
)

// AppError is the custom error type for the application
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidation creates a validation error
func NewValidation(message string) error {
	return &AppError{Type: ErrorTypeValidation, Message: message}
}

// NewValidationf creates a validation error with a formatted message
func NewValidationf(format string, args ...any) error {
	return NewValidation(fmt.Sprintf(format, args...))
}

// NewNotFound creates a not found error
func NewNotFound(message string) error {
	return &AppError{Type: ErrorTypeNotFound, Message: message}
}

// NewConflict creates a conflict error, used for failed conditional writes
func NewConflict(message string, err error) error {
	return &AppError{Type: ErrorTypeConflict, Message: message, Err: err}
}

// NewInternal creates an internal error
func NewInternal(message string, err error) error {
	return &AppError{Type: ErrorTypeInternal, Message: message, Err: err}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, preserve the type
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Type:    appErr.Type,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Err:     appErr.Err,
		}
	}

	return &AppError{Type: ErrorTypeInternal, Message: message, Err: err}
}

func typeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool { return typeOf(err) == ErrorTypeValidation }

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool { return typeOf(err) == ErrorTypeNotFound }

// IsConflict checks if an error is a conflict error
func IsConflict(err error) bool { return typeOf(err) == ErrorTypeConflict }

// IsInternal checks if an error is an internal error
func IsInternal(err error) bool { return typeOf(err) == ErrorTypeInternal }

// Message returns the client-facing message of an AppError, or the raw error text.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// StatusCode maps an error to the HTTP status the API answers with.
func StatusCode(err error) int {
	switch typeOf(err) {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
