package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a search failure so the HTTP boundary can pick a
// status code without parsing messages.
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindEmbeddingFailed   ErrorKind = "embedding_failed"
	KindDegenerateVector  ErrorKind = "degenerate_vector"
	KindDimensionMismatch ErrorKind = "dimension_mismatch"
	KindEmptyIndex        ErrorKind = "empty_index"
	KindIndexCorrupt      ErrorKind = "index_corrupt"
	KindTimeout           ErrorKind = "timeout"
	KindInternal          ErrorKind = "internal"
)

// Error is a tagged failure. Message is safe to return to clients; the
// wrapped cause (if any) stays server-side.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// NewError creates a tagged error with a formatted message.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError tags an underlying error. The client-visible message comes from
// format; cause is only included in server-side logs.
func WrapError(kind ErrorKind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// NewValidationError creates a validation error.
func NewValidationError(format string, args ...interface{}) *Error {
	return NewError(KindValidation, format, args...)
}

// KindOf returns the error kind, or KindInternal for untagged errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ClientMessage returns the client-safe message for err. Untagged errors get
// a generic message so internals never leak.
func ClientMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
