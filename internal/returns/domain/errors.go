// Package domain defines the Return aggregate, its lifecycle table and errors.
package domain

import (
	"github.com/allisson/orderbus/internal/errors"
)

// Return error definitions.
var (
	// ErrReturnNotFound indicates the return does not exist.
	ErrReturnNotFound = errors.Wrap(errors.ErrNotFound, "return not found")

	// ErrReturnVersionConflict indicates the return changed since it was read.
	ErrReturnVersionConflict = errors.Wrap(errors.ErrConflict, "return was modified concurrently")

	// ErrInvalidReturn indicates return fields failed validation.
	ErrInvalidReturn = errors.Wrap(errors.ErrInvalidInput, "invalid return")
)
