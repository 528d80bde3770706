package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string       `json:"error"`
	Message       string       `json:"message"`
	Fields        []FieldError `json:"fields,omitempty"`
	CorrelationID string       `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON      = "INVALID_JSON"
	ErrCodeValidation       = "VALIDATION_FAILED"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeUnavailable      = "UPSTREAM_UNAVAILABLE"
	ErrCodeCyclicHierarchy  = "CYCLIC_HIERARCHY"
	ErrCodeUnauthorised     = "UNAUTHORIZED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// Sentinels for errors.Is matching. Every typed error below reports Is() == true
// for exactly one of these.
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrPersistence      = errors.New("persistence failure")
	ErrCyclicHierarchy  = errors.New("cyclic hierarchy")
)

// FieldError is a single field-scoped validation message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every failing field of a draft or sub-record.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError creates a validation error for the given fields.
func NewValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Code returns the API error code.
func (e *ValidationError) Code() string { return ErrCodeValidation }

// Field returns the first message recorded for name.
func (e *ValidationError) Field(name string) (FieldError, bool) {
	for _, f := range e.Fields {
		if f.Field == name {
			return f, true
		}
	}
	return FieldError{}, false
}

// NotFoundError reports an operation on an id that does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func (e *NotFoundError) Code() string { return ErrCodeNotFound }

// InvalidOperationError is returned when a call is not allowed in the current
// state, for example a mutation on a form opened in view mode. Err, when set,
// is a sentinel naming the state that blocked the call.
type InvalidOperationError struct {
	Op     string
	Reason string
	Err    error
}

func (e *InvalidOperationError) Error() string {
	reason := e.Reason
	if reason == "" && e.Err != nil {
		reason = e.Err.Error()
	}
	return fmt.Sprintf("cannot %s: %s", e.Op, reason)
}

func (e *InvalidOperationError) Unwrap() error { return e.Err }

func (e *InvalidOperationError) Is(target error) bool { return target == ErrInvalidOperation }

func (e *InvalidOperationError) Code() string { return ErrCodeInvalidOperation }

// FailureKind categorises persistence failures.
type FailureKind string

const (
	FailureNetwork  FailureKind = "network"
	FailureRejected FailureKind = "rejected"
	FailureNotFound FailureKind = "not_found"
	FailureConflict FailureKind = "conflict"
	FailureInternal FailureKind = "internal"
)

// PersistenceFailure is reported by a persistence client. The draft that
// produced it is preserved so the caller can retry or cancel.
type PersistenceFailure struct {
	Kind     FailureKind
	Op       string
	Resource ResourceType
	ID       string
	Fields   []FieldError
	Err      error
}

func (e *PersistenceFailure) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Op, e.Resource, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PersistenceFailure) Unwrap() error { return e.Err }

func (e *PersistenceFailure) Is(target error) bool {
	switch target {
	case ErrPersistence:
		return true
	case ErrNotFound:
		return e.Kind == FailureNotFound
	}
	return false
}

// Retryable reports whether the same request may succeed later unchanged.
func (e *PersistenceFailure) Retryable() bool {
	return e.Kind == FailureNetwork
}

func (e *PersistenceFailure) Code() string {
	switch e.Kind {
	case FailureRejected:
		return ErrCodeValidation
	case FailureNotFound:
		return ErrCodeNotFound
	case FailureConflict:
		return ErrCodeConflict
	case FailureNetwork:
		return ErrCodeUnavailable
	default:
		return ErrCodeInternalError
	}
}

// CyclicHierarchyError is returned when a parent chain revisits an id.
type CyclicHierarchyError struct {
	Path []string
}

func (e *CyclicHierarchyError) Error() string {
	return "cyclic hierarchy: " + strings.Join(e.Path, " -> ")
}

func (e *CyclicHierarchyError) Is(target error) bool { return target == ErrCyclicHierarchy }

func (e *CyclicHierarchyError) Code() string { return ErrCodeCyclicHierarchy }

// ErrorCode returns the API error code carried by err, or ErrCodeInternalError.
func ErrorCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return ErrCodeInternalError
}
