// Package domain defines the Order aggregate, its lifecycle table and errors.
package domain

import (
	"github.com/allisson/orderbus/internal/errors"
)

// Order error definitions.
var (
	// ErrOrderNotFound indicates the order does not exist.
	ErrOrderNotFound = errors.Wrap(errors.ErrNotFound, "order not found")

	// ErrOrderVersionConflict indicates the order changed since it was read.
	ErrOrderVersionConflict = errors.Wrap(errors.ErrConflict, "order was modified concurrently")

	// ErrInvalidOrder indicates order fields failed validation.
	ErrInvalidOrder = errors.Wrap(errors.ErrInvalidInput, "invalid order")
)
