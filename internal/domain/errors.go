package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnauthorized covers invalid or missing device credentials and
// invalid/expired/consumed pairing tokens. It intentionally carries no
// detail about which credential failed.
var ErrUnauthorized = errors.New("unauthorized")

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is a malformed request: missing, empty or mistyped
// fields. Maps to HTTP 422 with the field list, never a server fault.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return "validation failed: " + strings.Join(names, ", ")
}

// Add appends a field error and returns the receiver for chaining.
func (e *ValidationError) Add(field, message string) *ValidationError {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
	return e
}

// HasErrors reports whether any field failed validation.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// ProbeError is an OS enumeration failure: the process table or window
// list could not be read at all. The detector logs it and treats the
// tick as idle rather than aborting the sampling loop.
type ProbeError struct {
	Op  string
	Err error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Op, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// TransientNetworkError is a reporter flush failure worth retrying.
// After the bounded retry budget the batch is spilled locally.
type TransientNetworkError struct {
	Err error
}

func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("transient network error: %v", e.Err)
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried with backoff.
func IsTransient(err error) bool {
	var t *TransientNetworkError
	return errors.As(err, &t)
}
