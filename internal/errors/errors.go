// Package errors holds the error kinds shared by every bounded context.
// Domain packages wrap one of the kinds below and the HTTP layer maps the kind
// to a status code.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the aggregate or row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict covers illegal state transitions, stale versions and duplicate keys.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput means a value failed validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable means the database, bus or a webhook endpoint refused or timed out.
	ErrUnavailable = errors.New("unavailable")
)

// Wrap prefixes err with message and keeps it matchable with Is. A nil err stays nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether err matches target anywhere in its chain.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
