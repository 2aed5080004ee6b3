package queue

import (
	"errors"
	"fmt"
)

// ErrNotFoundOrExpired is returned by Approve and Reject when no pending,
// unexpired item matches the id. The item may never have existed, may already
// be decided, or may be past its deadline; callers that need to tell these
// apart must Get the item themselves.
var ErrNotFoundOrExpired = errors.New("queue item not found, already decided, or expired")

// ErrStoreFailure matches every error produced by the durable storage layer.
var ErrStoreFailure = errors.New("queue store failure")

// ErrorClassifier allows errors to declare a stable classification that front
// ends can map to user-facing responses without inspecting messages.
type ErrorClassifier interface {
	// ErrorKind returns "validation", "not_found_or_expired", or "store".
	ErrorKind() string
}

// ValidationError describes a malformed submission. It is never persisted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid submission: " + e.Message
	}
	return fmt.Sprintf("invalid submission: %s %s", e.Field, e.Message)
}

// ErrorKind implements ErrorClassifier.
func (e *ValidationError) ErrorKind() string { return "validation" }

// StoreError wraps an I/O or driver failure from SQLite.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStoreFailure) match any StoreError.
func (e *StoreError) Is(target error) bool { return target == ErrStoreFailure }

// ErrorKind implements ErrorClassifier.
func (e *StoreError) ErrorKind() string { return "store" }

func storeFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// Kind classifies err for presentation. Unknown errors are reported as "store"
// so they surface as server faults rather than client mistakes.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFoundOrExpired):
		return "not_found_or_expired"
	}
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		return classifier.ErrorKind()
	}
	return "store"
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
