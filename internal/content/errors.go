package content

import (
	"errors"
	"fmt"

	"github.com/recitalsite/recital/backend/go-services/internal/store"
)

var (
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is a normal outcome of Get*, not a failure.
	ErrNotFound = store.ErrNotFound
)

// ValidationError names the first field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// WriteError reports a create the backend did not accept. The caller keeps
// its input; nothing is retried.
type WriteError struct {
	Collection string
	ID         string
	Err        error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s/%s: %v", e.Collection, e.ID, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
