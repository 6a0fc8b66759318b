package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeGraph represents graph store/backend errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeIngest represents CSV ingestion errors
	ErrorTypeIngest ErrorType = "ingest"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Graph backend errors

// ErrBackendUnavailable is returned when a graph backend cannot establish its
// connection. Fatal at startup: the process must fail fast rather than run
// half-initialized.
var ErrBackendUnavailable = NewBaseError(ErrorTypeGraph, "graph backend unavailable", nil)

// BackendUnavailableError wraps ErrBackendUnavailable with backend detail.
type BackendUnavailableError struct {
	*BaseError
	Backend string
}

func NewBackendUnavailable(backend string, err error) *BackendUnavailableError {
	return &BackendUnavailableError{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("backend %q unavailable", backend), err),
		Backend:   backend,
	}
}

// Is lets errors.Is(err, ErrBackendUnavailable) match any backend.
func (e *BackendUnavailableError) Is(target error) bool {
	return target == ErrBackendUnavailable
}

// ErrUnsupportedOperation is returned by stub backends for operations they do
// not implement, so callers can detect capability gaps rather than misread
// them as "no data".
var ErrUnsupportedOperation = NewBaseError(ErrorTypeGraph, "operation not supported by this backend", nil)

// UnsupportedOperationError names the backend and operation.
type UnsupportedOperationError struct {
	*BaseError
	Backend   string
	Operation string
}

func NewUnsupportedOperation(backend, operation string) *UnsupportedOperationError {
	return &UnsupportedOperationError{
		BaseError: NewBaseError(ErrorTypeGraph,
			fmt.Sprintf("%s does not implement %s", backend, operation), nil),
		Backend:   backend,
		Operation: operation,
	}
}

func (e *UnsupportedOperationError) Is(target error) bool {
	return target == ErrUnsupportedOperation
}

// Ingestion errors

// MalformedRowError is returned when a CSV row has missing or invalid fields.
// Bad rows are a hard failure, never silently skipped.
type MalformedRowError struct {
	*BaseError
	File string
	Line int
}

func NewMalformedRow(file string, line int, err error) *MalformedRowError {
	return &MalformedRowError{
		BaseError: NewBaseError(ErrorTypeIngest,
			fmt.Sprintf("malformed row in %s at line %d", file, line), err),
		File: file,
		Line: line,
	}
}

// IsMalformedRow reports whether err is (or wraps) a MalformedRowError.
func IsMalformedRow(err error) bool {
	var m *MalformedRowError
	return errors.As(err, &m)
}
