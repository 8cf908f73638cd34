package models

import (
	"errors"
	"fmt"
)

// ErrorKind is a stable, machine-readable classification of a failure.
type ErrorKind string

const (
	KindNotFound         ErrorKind = "not_found"
	KindInvalidState     ErrorKind = "invalid_state"
	KindCapacityExceeded ErrorKind = "capacity_exceeded"
	KindForbidden        ErrorKind = "forbidden"
	KindSignatureInvalid ErrorKind = "signature_invalid"
	KindProviderError    ErrorKind = "provider_error"
	KindValidation       ErrorKind = "validation_error"
)

// AppError is the error type returned by all core operations. Handlers map
// the Kind to an HTTP status; Message is safe to show to the caller.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFound returns a not_found error
func NewNotFound(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message}
}

// NewInvalidState returns an invalid_state error
func NewInvalidState(message string) *AppError {
	return &AppError{Kind: KindInvalidState, Message: message}
}

// NewCapacityExceeded returns a capacity_exceeded error
func NewCapacityExceeded(message string) *AppError {
	return &AppError{Kind: KindCapacityExceeded, Message: message}
}

// NewForbidden returns a forbidden error
func NewForbidden(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message}
}

// NewSignatureInvalid returns a signature_invalid error
func NewSignatureInvalid(message string) *AppError {
	return &AppError{Kind: KindSignatureInvalid, Message: message}
}

// NewProviderError wraps a payment provider failure
func NewProviderError(message string, err error) *AppError {
	return &AppError{Kind: KindProviderError, Message: message, Err: err}
}

// NewValidationError returns a validation_error
func NewValidationError(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

// KindOf extracts the ErrorKind from an error chain. Unclassified errors
// report an empty kind.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}
