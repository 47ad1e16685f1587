// Package errors provides the sentinel errors shared by every domain package.
// Domain packages wrap these sentinels with their own messages so that callers
// (HTTP handlers, CLI commands) can classify a failure with errors.Is without
// knowing which layer produced it.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors used across domain modules.
var (
	// ErrNotFound indicates the requested key, version or record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a concurrent writer won a compare-and-swap.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input failed validation or could not be
	// interpreted (malformed ciphertext, unknown algorithm, bad key size).
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable indicates a backing store could not be reached.
	ErrUnavailable = errors.New("unavailable")

	// ErrInternal indicates a server-side fault the caller cannot fix, such as stored
	// state that no configured key can read. It takes precedence over the other
	// sentinels when classifying.
	ErrInternal = errors.New("internal error")
)

// New creates a new error with the given message.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps err with message while preserving the error chain.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors, discarding nils.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
