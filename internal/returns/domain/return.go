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

// Status is the lifecycle state of a return.
type Status string

const (
	StatusRequested       Status = "REQUESTED"
	StatusApproved        Status = "APPROVED"
	StatusRejected        Status = "REJECTED"
	StatusPickupScheduled Status = "PICKUP_SCHEDULED"
	StatusPickedUp        Status = "PICKED_UP"
	StatusInspecting      Status = "INSPECTING"
	StatusCompleted       Status = "COMPLETED"
	StatusCancelled       Status = "CANCELLED"
)

// Transitions is the return lifecycle table.
var Transitions = statemachine.NewTable("return", map[Status][]Status{
	StatusRequested:       {StatusApproved, StatusRejected},
	StatusApproved:        {StatusPickupScheduled, StatusCancelled},
	StatusPickupScheduled: {StatusPickedUp, StatusCancelled},
	StatusPickedUp:        {StatusInspecting},
	StatusInspecting:      {StatusCompleted, StatusRejected},
	StatusCompleted:       {},
	StatusRejected:        {},
	StatusCancelled:       {},
})

// MaxReasonLength bounds the free-text reason.
const MaxReasonLength = 1000

// ParseStatus converts a raw status name, rejecting unknown values.
func ParseStatus(raw string) (Status, error) {
	return Transitions.Parse(raw)
}

// Return is a customer request to send back a delivered order.
type Return struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	SellerID  uuid.UUID
	Reason    string
	Status    Status
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewReturn validates the input and returns a REQUESTED return with its event.
func NewReturn(orderID, sellerID uuid.UUID, reason string, now time.Time) (*Return, *events.ReturnRequested, error) {
	r := &Return{
		ID:        uuid.Must(uuid.NewV7()),
		OrderID:   orderID,
		SellerID:  sellerID,
		Reason:    strings.TrimSpace(reason),
		Status:    StatusRequested,
		Version:   1,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	if err := r.Validate(); err != nil {
		return nil, nil, err
	}

	evt := &events.ReturnRequested{
		ReturnID: r.ID,
		OrderID:  r.OrderID,
		Seller:   r.SellerID,
		Reason:   r.Reason,
		Status:   string(r.Status),
		At:       r.CreatedAt,
	}
	return r, evt, nil
}

// Validate checks the immutable return fields.
func (r *Return) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.OrderID, customValidation.NotNilUUID),
		validation.Field(&r.SellerID, customValidation.NotNilUUID),
		validation.Field(&r.Reason, validation.Required, validation.Length(1, MaxReasonLength)),
	)
	return customValidation.WrapInvalid(ErrInvalidReturn, err)
}

// TransitionTo moves the return to target through the lifecycle table.
func (r *Return) TransitionTo(target Status, now time.Time) (*events.StatusChanged, error) {
	if err := Transitions.Transition(r.Status, target); err != nil {
		return nil, err
	}

	from := r.Status
	r.Status = target
	r.UpdatedAt = now.UTC()

	return &events.StatusChanged{
		Aggregate: events.AggregateReturn,
		ID:        r.ID,
		OrderID:   r.OrderID,
		Seller:    r.SellerID,
		From:      string(from),
		To:        string(target),
		At:        r.UpdatedAt,
	}, nil
}

// IsClosedWithoutRefund reports whether the return ended without the goods coming back.
func (r *Return) IsClosedWithoutRefund() bool {
	return r.Status == StatusRejected || r.Status == StatusCancelled
}

// Approve accepts a REQUESTED return.
func (r *Return) Approve(now time.Time) (*events.StatusChanged, error) {
	return r.TransitionTo(StatusApproved, now)
}

// Reject refuses the return on request or after inspection.
func (r *Return) Reject(now time.Time) (*events.StatusChanged, error) {
	return r.TransitionTo(StatusRejected, now)
}

// SchedulePickup books the carrier collection of an approved return.
func (r *Return) SchedulePickup(now time.Time) (*events.StatusChanged, error) {
	return r.TransitionTo(StatusPickupScheduled, now)
}

// MarkPickedUp records the carrier collecting the returned items.
func (r *Return) MarkPickedUp(now time.Time) (*events.StatusChanged, error) {
	return r.TransitionTo(StatusPickedUp, now)
}

// StartInspection moves a picked up return to INSPECTING.
func (r *Return) StartInspection(now time.Time) (*events.StatusChanged, error) {
	return r.TransitionTo(StatusInspecting, now)
}

// Complete closes an inspected return as COMPLETED.
func (r *Return) Complete(now time.Time) (*events.StatusChanged, error) {
	return r.TransitionTo(StatusCompleted, now)
}

// Cancel withdraws an approved return before pickup.
func (r *Return) Cancel(now time.Time) (*events.StatusChanged, error) {
	return r.TransitionTo(StatusCancelled, now)
}
