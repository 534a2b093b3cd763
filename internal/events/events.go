// Package events defines the closed set of domain events raised by the Order,
// Shipment and Return aggregates, and the flat JSON envelope they travel in.
package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/orderbus/internal/errors"
)

// AggregateType identifies the aggregate an event originates from.
type AggregateType string

const (
	AggregateOrder    AggregateType = "ORDER"
	AggregateShipment AggregateType = "SHIPMENT"
	AggregateReturn   AggregateType = "RETURN"
)

// Event type tags.
const (
	TypeOrderCreated          = "order.created"
	TypeOrderStatusChanged    = "order.status_changed"
	TypeShipmentCreated       = "shipment.created"
	TypeShipmentStatusChanged = "shipment.status_changed"
	TypeReturnRequested       = "return.requested"
	TypeReturnStatusChanged   = "return.status_changed"
)

// Types lists every event type tag, used to validate webhook subscriptions.
var Types = []string{
	TypeOrderCreated,
	TypeOrderStatusChanged,
	TypeShipmentCreated,
	TypeShipmentStatusChanged,
	TypeReturnRequested,
	TypeReturnStatusChanged,
}

// IsKnownType reports whether eventType is one of Types.
func IsKnownType(eventType string) bool {
	for _, t := range Types {
		if t == eventType {
			return true
		}
	}
	return false
}

// Event is implemented only by the types in this package.
type Event interface {
	EventType() string
	AggregateType() AggregateType
	AggregateID() uuid.UUID
	OwnerID() uuid.UUID
	OccurredAt() time.Time
	fields() map[string]any
}

// OrderCreated is raised when an order is placed.
type OrderCreated struct {
	OrderID     uuid.UUID
	Seller      uuid.UUID
	CustomerID  uuid.UUID
	TotalAmount int64
	Currency    string
	Status      string
	At          time.Time
}

func (e *OrderCreated) EventType() string            { return TypeOrderCreated }
func (e *OrderCreated) AggregateType() AggregateType { return AggregateOrder }
func (e *OrderCreated) AggregateID() uuid.UUID       { return e.OrderID }
func (e *OrderCreated) OwnerID() uuid.UUID           { return e.Seller }
func (e *OrderCreated) OccurredAt() time.Time        { return e.At }

func (e *OrderCreated) fields() map[string]any {
	return map[string]any{
		"customerId":  e.CustomerID,
		"totalAmount": e.TotalAmount,
		"currency":    e.Currency,
		"status":      e.Status,
	}
}

// ShipmentCreated is raised when an order is handed to a carrier.
type ShipmentCreated struct {
	ShipmentID     uuid.UUID
	OrderID        uuid.UUID
	Seller         uuid.UUID
	Carrier        string
	TrackingNumber string
	Status         string
	At             time.Time
}

func (e *ShipmentCreated) EventType() string            { return TypeShipmentCreated }
func (e *ShipmentCreated) AggregateType() AggregateType { return AggregateShipment }
func (e *ShipmentCreated) AggregateID() uuid.UUID       { return e.ShipmentID }
func (e *ShipmentCreated) OwnerID() uuid.UUID           { return e.Seller }
func (e *ShipmentCreated) OccurredAt() time.Time        { return e.At }

func (e *ShipmentCreated) fields() map[string]any {
	return map[string]any{
		"orderId":        e.OrderID,
		"carrier":        e.Carrier,
		"trackingNumber": e.TrackingNumber,
		"status":         e.Status,
	}
}

// ReturnRequested is raised when a customer asks to return a delivered order.
type ReturnRequested struct {
	ReturnID uuid.UUID
	OrderID  uuid.UUID
	Seller   uuid.UUID
	Reason   string
	Status   string
	At       time.Time
}

func (e *ReturnRequested) EventType() string            { return TypeReturnRequested }
func (e *ReturnRequested) AggregateType() AggregateType { return AggregateReturn }
func (e *ReturnRequested) AggregateID() uuid.UUID       { return e.ReturnID }
func (e *ReturnRequested) OwnerID() uuid.UUID           { return e.Seller }
func (e *ReturnRequested) OccurredAt() time.Time        { return e.At }

func (e *ReturnRequested) fields() map[string]any {
	return map[string]any{
		"orderId": e.OrderID,
		"reason":  e.Reason,
		"status":  e.Status,
	}
}

// StatusChanged is raised by every successful lifecycle transition. OrderID is
// uuid.Nil when the aggregate is the order itself.
type StatusChanged struct {
	Aggregate AggregateType
	ID        uuid.UUID
	OrderID   uuid.UUID
	Seller    uuid.UUID
	From      string
	To        string
	At        time.Time
}

func (e *StatusChanged) EventType() string {
	switch e.Aggregate {
	case AggregateShipment:
		return TypeShipmentStatusChanged
	case AggregateReturn:
		return TypeReturnStatusChanged
	default:
		return TypeOrderStatusChanged
	}
}

func (e *StatusChanged) AggregateType() AggregateType { return e.Aggregate }
func (e *StatusChanged) AggregateID() uuid.UUID       { return e.ID }
func (e *StatusChanged) OwnerID() uuid.UUID           { return e.Seller }
func (e *StatusChanged) OccurredAt() time.Time        { return e.At }

func (e *StatusChanged) fields() map[string]any {
	f := map[string]any{
		"previousStatus": e.From,
		"newStatus":      e.To,
	}
	if e.OrderID != uuid.Nil {
		f["orderId"] = e.OrderID
	}
	return f
}

// Envelope holds the fields common to every serialized event.
type Envelope struct {
	EventType     string        `json:"eventType"`
	AggregateType AggregateType `json:"aggregateType"`
	AggregateID   uuid.UUID     `json:"aggregateId"`
	SellerID      uuid.UUID     `json:"sellerId"`
	OccurredAt    time.Time     `json:"occurredAt"`
}

// Marshal serializes evt as a flat JSON object: the envelope keys plus the
// event-specific fields.
func Marshal(evt Event) ([]byte, error) {
	doc := evt.fields()
	doc["eventType"] = evt.EventType()
	doc["aggregateType"] = evt.AggregateType()
	doc["aggregateId"] = evt.AggregateID()
	doc["sellerId"] = evt.OwnerID()
	doc["occurredAt"] = evt.OccurredAt().UTC()

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", evt.EventType(), err)
	}
	return data, nil
}

// DecodeEnvelope reads the envelope keys of a serialized event.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, apperrors.Wrap(apperrors.ErrInvalidInput, "malformed event envelope: "+err.Error())
	}
	if env.EventType == "" || env.AggregateID == uuid.Nil {
		return Envelope{}, apperrors.Wrap(apperrors.ErrInvalidInput, "event envelope missing eventType or aggregateId")
	}
	return env, nil
}

// Topic resolves the bus topic an event type is published to.
func Topic(eventType string) (string, error) {
	prefix, _, ok := strings.Cut(eventType, ".")
	if !ok {
		return "", fmt.Errorf("no topic for event type %q", eventType)
	}
	switch prefix {
	case "order":
		return "orders", nil
	case "shipment":
		return "shipments", nil
	case "return":
		return "returns", nil
	default:
		return "", fmt.Errorf("no topic for event type %q", eventType)
	}
}
