package embedding

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch indicates a provider returned a vector of unexpected size.
var ErrDimensionMismatch = errors.New("unexpected embedding dimensions")

// Error reports an embedding failure after all retry attempts were spent.
type Error struct {
	Model    string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("embedding with %s failed after %d attempt(s): %v", e.Model, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// permanentError marks an error that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err should not be retried.
func IsPermanent(err error) bool {
	var p *permanentError
	if errors.As(err, &p) {
		return true
	}
	return errors.Is(err, ErrDimensionMismatch)
}
