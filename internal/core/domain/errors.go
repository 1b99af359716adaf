package domain

import (
	"errors"
	"fmt"
)

// Error codes carried by ServiceError. The REST adapter maps them to HTTP
// status codes.
const (
	CodeMalformedPayload    = "MALFORMED_PAYLOAD"
	CodeMissingField        = "MISSING_FIELD"
	CodeTypeMismatch        = "TYPE_MISMATCH"
	CodeIdentifierMismatch  = "IDENTIFIER_MISMATCH"
	CodeReferenceNotFound   = "REFERENCE_NOT_FOUND"
	CodeUniquenessConflict  = "UNIQUENESS_CONFLICT"
	CodeBodyNotAllowed      = "BODY_NOT_ALLOWED"
	CodeConstraintViolation = "CONSTRAINT_VIOLATION"
	CodeInvalidFilter       = "INVALID_FILTER"
	CodeInternal            = "INTERNAL_ERROR"
)

// Sentinel errors returned by store adapters. Driver-specific errors never
// cross the store boundary.
var (
	// ErrRecordNotFound is returned when a lookup by id matches no row
	ErrRecordNotFound = errors.New("record not found")

	// ErrUniqueViolation is returned when a write violates a uniqueness constraint
	ErrUniqueViolation = errors.New("unique constraint violated")

	// ErrForeignKeyViolation is returned when a write references a missing parent row
	ErrForeignKeyViolation = errors.New("foreign key constraint violated")
)

// ServiceError represents domain-specific errors that can occur while
// validating or applying a request. It provides structured error
// information with an error code and an optional underlying cause.
type ServiceError struct {
	// Code identifies the type of error for programmatic handling
	Code string

	// Message provides a human-readable error description
	Message string

	// Cause wraps an underlying error if applicable
	Cause error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// NewError builds a ServiceError with a formatted message.
func NewError(code, format string, args ...any) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithCause attaches an underlying error and returns the receiver.
func (e *ServiceError) WithCause(cause error) *ServiceError {
	e.Cause = cause
	return e
}

// HasCode reports whether err is a ServiceError carrying code.
func HasCode(err error, code string) bool {
	var e *ServiceError
	if errors.As(err, &e) {
		return e.Code == code
	}

	return false
}
