// Package dto provides data transfer objects for outbox HTTP responses.
package dto

import (
	"time"

	"github.com/allisson/orderbus/internal/outbox/domain"
)

// OutboxEventResponse represents an outbox row in API responses.
type OutboxEventResponse struct {
	ID            string     `json:"id"`
	AggregateType string     `json:"aggregate_type"`
	AggregateID   string     `json:"aggregate_id"`
	EventType     string     `json:"event_type"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	ErrorMessage  *string    `json:"error_message,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// MapOutboxEventToResponse converts an outbox row to an API response.
func MapOutboxEventToResponse(e *domain.OutboxEvent) OutboxEventResponse {
	return OutboxEventResponse{
		ID:            e.ID.String(),
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID.String(),
		EventType:     e.EventType,
		Status:        string(e.Status),
		RetryCount:    e.RetryCount,
		ErrorMessage:  e.ErrorMessage,
		ProcessedAt:   e.ProcessedAt,
		CreatedAt:     e.CreatedAt,
	}
}

// ListOutboxEventsResponse wraps a page of outbox rows.
type ListOutboxEventsResponse struct {
	Data []OutboxEventResponse `json:"data"`
}

// MapOutboxEventsToListResponse converts outbox rows to a list response.
func MapOutboxEventsToListResponse(events []*domain.OutboxEvent) ListOutboxEventsResponse {
	data := make([]OutboxEventResponse, 0, len(events))
	for _, e := range events {
		data = append(data, MapOutboxEventToResponse(e))
	}
	return ListOutboxEventsResponse{Data: data}
}
