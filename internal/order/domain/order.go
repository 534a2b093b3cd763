package domain

import (
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	"github.com/allisson/orderbus/internal/events"
	"github.com/allisson/orderbus/internal/statemachine"
	customValidation "github.com/allisson/orderbus/internal/validation"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusPaid            Status = "PAID"
	StatusConfirmed       Status = "CONFIRMED"
	StatusPreparing       Status = "PREPARING"
	StatusShipped         Status = "SHIPPED"
	StatusInTransit       Status = "IN_TRANSIT"
	StatusOutForDelivery  Status = "OUT_FOR_DELIVERY"
	StatusDelivered       Status = "DELIVERED"
	StatusReturnRequested Status = "RETURN_REQUESTED"
	StatusReturned        Status = "RETURNED"
	StatusCancelled       Status = "CANCELLED"
)

// Transitions is the order lifecycle table. CANCELLED and RETURNED are terminal.
var Transitions = statemachine.NewTable("order", map[Status][]Status{
	StatusPending:         {StatusPaid, StatusCancelled},
	StatusPaid:            {StatusConfirmed, StatusCancelled},
	StatusConfirmed:       {StatusPreparing, StatusCancelled},
	StatusPreparing:       {StatusShipped, StatusCancelled},
	StatusShipped:         {StatusInTransit, StatusCancelled},
	StatusInTransit:       {StatusOutForDelivery},
	StatusOutForDelivery:  {StatusDelivered},
	StatusDelivered:       {StatusReturnRequested},
	StatusReturnRequested: {StatusReturned, StatusDelivered},
	StatusReturned:        {},
	StatusCancelled:       {},
})

// ParseStatus converts a raw status name, rejecting unknown values.
func ParseStatus(raw string) (Status, error) {
	return Transitions.Parse(raw)
}

// Order is a customer purchase from a single seller. Version is bumped by the
// repository on every successful update.
type Order struct {
	ID          uuid.UUID
	SellerID    uuid.UUID
	CustomerID  uuid.UUID
	TotalAmount int64
	Currency    string
	Status      Status
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewOrder validates the input and returns a PENDING order with its created event.
func NewOrder(
	sellerID, customerID uuid.UUID,
	totalAmount int64,
	currency string,
	now time.Time,
) (*Order, *events.OrderCreated, error) {
	o := &Order{
		ID:          uuid.Must(uuid.NewV7()),
		SellerID:    sellerID,
		CustomerID:  customerID,
		TotalAmount: totalAmount,
		Currency:    currency,
		Status:      StatusPending,
		Version:     1,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
	if err := o.Validate(); err != nil {
		return nil, nil, err
	}

	evt := &events.OrderCreated{
		OrderID:     o.ID,
		Seller:      o.SellerID,
		CustomerID:  o.CustomerID,
		TotalAmount: o.TotalAmount,
		Currency:    o.Currency,
		Status:      string(o.Status),
		At:          o.CreatedAt,
	}
	return o, evt, nil
}

// Validate checks the immutable order fields.
func (o *Order) Validate() error {
	err := validation.ValidateStruct(o,
		validation.Field(&o.SellerID, customValidation.NotNilUUID),
		validation.Field(&o.CustomerID, customValidation.NotNilUUID),
		validation.Field(&o.TotalAmount, validation.Required, validation.Min(int64(1))),
		validation.Field(&o.Currency, validation.Required, customValidation.CurrencyCode),
	)
	return customValidation.WrapInvalid(ErrInvalidOrder, err)
}

// TransitionTo moves the order to target through the lifecycle table. The order
// is left untouched when the move is not allowed.
func (o *Order) TransitionTo(target Status, now time.Time) (*events.StatusChanged, error) {
	if err := Transitions.Transition(o.Status, target); err != nil {
		return nil, err
	}

	from := o.Status
	o.Status = target
	o.UpdatedAt = now.UTC()

	return &events.StatusChanged{
		Aggregate: events.AggregateOrder,
		ID:        o.ID,
		Seller:    o.SellerID,
		From:      string(from),
		To:        string(target),
		At:        o.UpdatedAt,
	}, nil
}

// CanTransitionTo reports whether target is reachable in one step.
func (o *Order) CanTransitionTo(target Status) bool {
	return Transitions.CanTransition(o.Status, target)
}

// Pay moves a PENDING order to PAID.
func (o *Order) Pay(now time.Time) (*events.StatusChanged, error) {
	return o.TransitionTo(StatusPaid, now)
}

// Confirm moves a PAID order to CONFIRMED.
func (o *Order) Confirm(now time.Time) (*events.StatusChanged, error) {
	return o.TransitionTo(StatusConfirmed, now)
}

// StartPreparing moves a CONFIRMED order to PREPARING.
func (o *Order) StartPreparing(now time.Time) (*events.StatusChanged, error) {
	return o.TransitionTo(StatusPreparing, now)
}

// Ship moves a PREPARING order to SHIPPED.
func (o *Order) Ship(now time.Time) (*events.StatusChanged, error) {
	return o.TransitionTo(StatusShipped, now)
}

// MarkInTransit moves a SHIPPED order to IN_TRANSIT.
func (o *Order) MarkInTransit(now time.Time) (*events.StatusChanged, error) {
	return o.TransitionTo(StatusInTransit, now)
}

// MarkOutForDelivery moves an IN_TRANSIT order to OUT_FOR_DELIVERY.
func (o *Order) MarkOutForDelivery(now time.Time) (*events.StatusChanged, error) {
	return o.TransitionTo(StatusOutForDelivery, now)
}

// MarkDelivered moves an OUT_FOR_DELIVERY order to DELIVERED.
func (o *Order) MarkDelivered(now time.Time) (*events.StatusChanged, error) {
	return o.TransitionTo(StatusDelivered, now)
}

// RequestReturn moves a DELIVERED order to RETURN_REQUESTED.
func (o *Order) RequestReturn(now time.Time) (*events.StatusChanged, error) {
	return o.TransitionTo(StatusReturnRequested, now)
}

// CompleteReturn moves a RETURN_REQUESTED order to RETURNED.
func (o *Order) CompleteReturn(now time.Time) (*events.StatusChanged, error) {
	return o.TransitionTo(StatusReturned, now)
}

// ReopenAfterReturn puts the order back to DELIVERED when its return was
// rejected or cancelled.
func (o *Order) ReopenAfterReturn(now time.Time) (*events.StatusChanged, error) {
	return o.TransitionTo(StatusDelivered, now)
}

// Cancel moves the order to CANCELLED. Orders cannot be cancelled once in transit.
func (o *Order) Cancel(now time.Time) (*events.StatusChanged, error) {
	return o.TransitionTo(StatusCancelled, now)
}
