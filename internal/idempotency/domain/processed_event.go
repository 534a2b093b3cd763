// Package domain defines the record kept for every inbound event a consumer has applied.
package domain

import (
	"time"

	"github.com/allisson/orderbus/internal/errors"
)

// MaxEventIDLength bounds inbound event ids.
const MaxEventIDLength = 128

// ProcessedEvent marks eventID as applied by Consumer. Two consumers may apply
// the same event id independently.
type ProcessedEvent struct {
	EventID     string
	EventType   string
	Consumer    string
	ProcessedAt time.Time
}

// ErrInvalidProcessedEvent indicates a missing or oversized key.
var ErrInvalidProcessedEvent = errors.Wrap(errors.ErrInvalidInput, "invalid processed event")

// Validate checks the key fields.
func (p *ProcessedEvent) Validate() error {
	switch {
	case p.EventID == "", len(p.EventID) > MaxEventIDLength:
		return ErrInvalidProcessedEvent
	case p.Consumer == "":
		return ErrInvalidProcessedEvent
	}
	return nil
}
