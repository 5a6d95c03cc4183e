// Package apperr defines the error kinds shared by services and handlers.
// Callers wrap one of the kind sentinels with %w; the HTTP layer maps the
// kind to a status code with errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation failed")

	// ErrAuthentication marks bad credentials or a missing, invalid or expired token.
	ErrAuthentication = errors.New("authentication failed")

	// ErrAuthorization marks a role or ownership mismatch.
	ErrAuthorization = errors.New("permission denied")

	// ErrNotFound marks a missing entity.
	ErrNotFound = errors.New("not found")
)

// Error is a kind-tagged error whose message is safe to show to clients.
type Error struct {
	kind error
	msg  string
}

// New returns an error of the given kind with a client-facing message.
func New(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

// Unwrap exposes the kind to errors.Is.
func (e *Error) Unwrap() error { return e.kind }

// PublicMessage returns the client-facing message carried by err, if any.
func PublicMessage(err error) (string, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.msg, true
	}
	return "", false
}

// ValidationError carries per-field messages.
type ValidationError struct {
	Fields map[string]string
}

// NewValidation returns a ValidationError for a single field.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// Add records a field message and returns the receiver for chaining.
func (e *ValidationError) Add(field, message string) *ValidationError {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
	return e
}

// OrNil returns nil when no field failed, so the result can be returned directly.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is reports ErrValidation as the kind of every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Kind returns the kind sentinel err wraps, or nil for unexpected errors.
func Kind(err error) error {
	for _, kind := range []error{ErrValidation, ErrAuthentication, ErrAuthorization, ErrNotFound} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
