// Package domain defines the outbox row staged alongside every aggregate change.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/orderbus/internal/events"
)

// OutboxEventStatus represents the status of an outbox event
type OutboxEventStatus string

const (
	OutboxEventStatusPending OutboxEventStatus = "PENDING"
	OutboxEventStatusSent    OutboxEventStatus = "SENT"
	OutboxEventStatusFailed  OutboxEventStatus = "FAILED"
)

// ParseStatus converts a raw status name, rejecting unknown values.
func ParseStatus(raw string) (OutboxEventStatus, error) {
	switch s := OutboxEventStatus(raw); s {
	case OutboxEventStatusPending, OutboxEventStatusSent, OutboxEventStatusFailed:
		return s, nil
	}
	return "", ErrInvalidStatus
}

// OutboxEvent is a domain event waiting to be published, written in the same
// transaction as the aggregate change that produced it. SENT and FAILED rows are
// never picked up by the publisher again.
type OutboxEvent struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       string
	Status        OutboxEventStatus
	RetryCount    int
	ErrorMessage  *string
	ProcessedAt   *time.Time
	CreatedAt     time.Time
}

// NewOutboxEvent serializes evt into a PENDING row.
func NewOutboxEvent(evt events.Event) (*OutboxEvent, error) {
	payload, err := events.Marshal(evt)
	if err != nil {
		return nil, err
	}

	return &OutboxEvent{
		ID:            uuid.Must(uuid.NewV7()),
		AggregateType: string(evt.AggregateType()),
		AggregateID:   evt.AggregateID(),
		EventType:     evt.EventType(),
		Payload:       string(payload),
		Status:        OutboxEventStatusPending,
		CreatedAt:     evt.OccurredAt().UTC(),
	}, nil
}

// MarkSent records a successful publish.
func (e *OutboxEvent) MarkSent(now time.Time) {
	processedAt := now.UTC()
	e.Status = OutboxEventStatusSent
	e.ProcessedAt = &processedAt
	e.ErrorMessage = nil
}

// RecordFailure counts a failed publish attempt and moves the row to FAILED once
// maxRetries attempts have been spent.
func (e *OutboxEvent) RecordFailure(cause error, maxRetries int) {
	msg := cause.Error()
	e.RetryCount++
	e.ErrorMessage = &msg
	if e.RetryCount >= maxRetries {
		e.Status = OutboxEventStatusFailed
	}
}

// Requeue returns a FAILED row to PENDING with a fresh retry budget.
func (e *OutboxEvent) Requeue() error {
	if e.Status != OutboxEventStatusFailed {
		return ErrOutboxEventNotFailed
	}
	e.Status = OutboxEventStatusPending
	e.RetryCount = 0
	e.ErrorMessage = nil
	return nil
}
