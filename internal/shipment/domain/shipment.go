package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	"github.com/allisson/orderbus/internal/events"
	"github.com/allisson/orderbus/internal/statemachine"
	customValidation "github.com/allisson/orderbus/internal/validation"
)

// Status is the lifecycle state of a shipment.
type Status string

const (
	StatusPending        Status = "PENDING"
	StatusPickedUp       Status = "PICKED_UP"
	StatusInTransit      Status = "IN_TRANSIT"
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	StatusDelivered      Status = "DELIVERED"
	StatusFailedAttempt  Status = "FAILED_ATTEMPT"
	StatusReturned       Status = "RETURNED"
	StatusCancelled      Status = "CANCELLED"
)

// Transitions is the shipment lifecycle table. IN_TRANSIT may repeat itself so
// intermediate carrier scans are accepted.
var Transitions = statemachine.NewTable("shipment", map[Status][]Status{
	StatusPending:        {StatusPickedUp, StatusCancelled},
	StatusPickedUp:       {StatusInTransit, StatusCancelled},
	StatusInTransit:      {StatusOutForDelivery, StatusInTransit},
	StatusOutForDelivery: {StatusDelivered, StatusFailedAttempt},
	StatusFailedAttempt:  {StatusOutForDelivery, StatusReturned},
	StatusDelivered:      {},
	StatusCancelled:      {},
	StatusReturned:       {},
})

// ParseStatus converts a raw status name, rejecting unknown values.
func ParseStatus(raw string) (Status, error) {
	return Transitions.Parse(raw)
}

// Shipment tracks the physical delivery of one order.
type Shipment struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	SellerID       uuid.UUID
	Carrier        string
	TrackingNumber string
	Status         Status
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewShipment validates the input and returns a PENDING shipment with its created event.
func NewShipment(
	orderID, sellerID uuid.UUID,
	carrier, trackingNumber string,
	now time.Time,
) (*Shipment, *events.ShipmentCreated, error) {
	s := &Shipment{
		ID:             uuid.Must(uuid.NewV7()),
		OrderID:        orderID,
		SellerID:       sellerID,
		Carrier:        strings.TrimSpace(carrier),
		TrackingNumber: strings.TrimSpace(trackingNumber),
		Status:         StatusPending,
		Version:        1,
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	}
	if err := s.Validate(); err != nil {
		return nil, nil, err
	}

	evt := &events.ShipmentCreated{
		ShipmentID:     s.ID,
		OrderID:        s.OrderID,
		Seller:         s.SellerID,
		Carrier:        s.Carrier,
		TrackingNumber: s.TrackingNumber,
		Status:         string(s.Status),
		At:             s.CreatedAt,
	}
	return s, evt, nil
}

// Validate checks the immutable shipment fields.
func (s *Shipment) Validate() error {
	err := validation.ValidateStruct(s,
		validation.Field(&s.OrderID, customValidation.NotNilUUID),
		validation.Field(&s.SellerID, customValidation.NotNilUUID),
		validation.Field(&s.Carrier, validation.Required, customValidation.NotBlank),
	)
	return customValidation.WrapInvalid(ErrInvalidShipment, err)
}

// TransitionTo moves the shipment to target through the lifecycle table.
func (s *Shipment) TransitionTo(target Status, now time.Time) (*events.StatusChanged, error) {
	if err := Transitions.Transition(s.Status, target); err != nil {
		return nil, err
	}

	from := s.Status
	s.Status = target
	s.UpdatedAt = now.UTC()

	return &events.StatusChanged{
		Aggregate: events.AggregateShipment,
		ID:        s.ID,
		OrderID:   s.OrderID,
		Seller:    s.SellerID,
		From:      string(from),
		To:        string(target),
		At:        s.UpdatedAt,
	}, nil
}

// CanTransitionTo reports whether target is reachable in one step.
func (s *Shipment) CanTransitionTo(target Status) bool {
	return Transitions.CanTransition(s.Status, target)
}

// PickUp records the carrier collecting a PENDING shipment.
func (s *Shipment) PickUp(now time.Time) (*events.StatusChanged, error) {
	return s.TransitionTo(StatusPickedUp, now)
}

// MarkInTransit records a carrier scan. It may repeat while IN_TRANSIT.
func (s *Shipment) MarkInTransit(now time.Time) (*events.StatusChanged, error) {
	return s.TransitionTo(StatusInTransit, now)
}

// MarkOutForDelivery moves the shipment to OUT_FOR_DELIVERY.
func (s *Shipment) MarkOutForDelivery(now time.Time) (*events.StatusChanged, error) {
	return s.TransitionTo(StatusOutForDelivery, now)
}

// MarkDelivered moves an OUT_FOR_DELIVERY shipment to DELIVERED.
func (s *Shipment) MarkDelivered(now time.Time) (*events.StatusChanged, error) {
	return s.TransitionTo(StatusDelivered, now)
}

// MarkFailedAttempt records a failed delivery attempt.
func (s *Shipment) MarkFailedAttempt(now time.Time) (*events.StatusChanged, error) {
	return s.TransitionTo(StatusFailedAttempt, now)
}

// MarkReturned sends a shipment back to the seller after a failed attempt.
func (s *Shipment) MarkReturned(now time.Time) (*events.StatusChanged, error) {
	return s.TransitionTo(StatusReturned, now)
}

// Cancel moves a shipment that has not left the carrier to CANCELLED.
func (s *Shipment) Cancel(now time.Time) (*events.StatusChanged, error) {
	return s.TransitionTo(StatusCancelled, now)
}
