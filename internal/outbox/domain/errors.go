package domain

import (
	"github.com/allisson/orderbus/internal/errors"
)

// Outbox error definitions.
var (
	// ErrOutboxEventNotFound indicates the outbox row does not exist.
	ErrOutboxEventNotFound = errors.Wrap(errors.ErrNotFound, "outbox event not found")

	// ErrOutboxEventNotFailed indicates only FAILED rows can be requeued.
	ErrOutboxEventNotFailed = errors.Wrap(errors.ErrConflict, "outbox event is not failed")

	// ErrInvalidStatus indicates an unknown outbox status filter.
	ErrInvalidStatus = errors.Wrap(errors.ErrInvalidInput, "invalid outbox event status")
)
