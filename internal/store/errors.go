package store

import (
	"errors"
	"fmt"
)

// ErrNotFound marks lookups for ids that resolve to nothing. Expected and
// non-fatal: callers surface it as a status, not a crash.
var ErrNotFound = errors.New("not found")

// NotFoundError reports a material id that does not resolve
type NotFoundError struct {
	Kind string // "material", "source", "node"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError reports a caller-supplied value outside its closed set,
// rejected before any store access.
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

// BackendError wraps a connection or transport failure. The store performs
// no automatic retry; retrying is at the caller's discretion.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend unavailable during %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is any not-found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
