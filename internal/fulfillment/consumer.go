// Package fulfillment applies inbound carrier tracking events to shipments.
package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/orderbus/internal/bus"
	apperrors "github.com/allisson/orderbus/internal/errors"
	shipmentDomain "github.com/allisson/orderbus/internal/shipment/domain"
	"github.com/allisson/orderbus/internal/statemachine"
)

// ConsumerName is the idempotency consumer name of the carrier handler.
const ConsumerName = "fulfillment"

// Carrier stream entry fields.
const (
	FieldEventID    = "event_id"
	FieldEventType  = "event_type"
	FieldShipmentID = "shipment_id"
	FieldOccurredAt = "occurred_at"
)

var carrierTargets = map[string]shipmentDomain.Status{
	"carrier.picked_up":        shipmentDomain.StatusPickedUp,
	"carrier.in_transit":       shipmentDomain.StatusInTransit,
	"carrier.out_for_delivery": shipmentDomain.StatusOutForDelivery,
	"carrier.delivered":        shipmentDomain.StatusDelivered,
	"carrier.delivery_failed":  shipmentDomain.StatusFailedAttempt,
	"carrier.returned":         shipmentDomain.StatusReturned,
}

// CarrierEvent is a decoded carrier stream entry.
type CarrierEvent struct {
	EventID    string
	EventType  string
	ShipmentID uuid.UUID
	Target     shipmentDomain.Status
	OccurredAt time.Time
}

// ParseCarrierEvent decodes and validates a carrier stream entry.
func ParseCarrierEvent(msg bus.Message) (CarrierEvent, error) {
	evt := CarrierEvent{
		EventID:   msg.Get(FieldEventID),
		EventType: msg.Get(FieldEventType),
	}
	if evt.EventID == "" {
		return CarrierEvent{}, apperrors.Wrap(apperrors.ErrInvalidInput, "carrier event has no event_id")
	}

	target, ok := carrierTargets[evt.EventType]
	if !ok {
		return CarrierEvent{}, apperrors.Wrap(apperrors.ErrInvalidInput,
			fmt.Sprintf("unknown carrier event type %q", evt.EventType))
	}
	evt.Target = target

	shipmentID, err := uuid.Parse(msg.Get(FieldShipmentID))
	if err != nil {
		return CarrierEvent{}, apperrors.Wrap(apperrors.ErrInvalidInput, "carrier event has an invalid shipment_id")
	}
	evt.ShipmentID = shipmentID

	if raw := msg.Get(FieldOccurredAt); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return CarrierEvent{}, apperrors.Wrap(apperrors.ErrInvalidInput, "carrier event has an invalid occurred_at")
		}
		evt.OccurredAt = at.UTC()
	}
	return evt, nil
}

// Guard runs fn at most once per event and consumer.
type Guard interface {
	Run(ctx context.Context, eventID, eventType, consumer string, fn func(ctx context.Context) error) (bool, error)
}

// ShipmentUpdater applies a carrier status to a shipment.
type ShipmentUpdater interface {
	ApplyCarrierUpdate(
		ctx context.Context,
		id uuid.UUID,
		target shipmentDomain.Status,
	) (*shipmentDomain.Shipment, bool, error)
}

// Handler consumes the carrier stream.
type Handler struct {
	guard     Guard
	shipments ShipmentUpdater
	logger    *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(guard Guard, shipments ShipmentUpdater, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{guard: guard, shipments: shipments, logger: logger}
}

// Handle applies one carrier event under the idempotency guard. Entries that
// can never apply are logged and acknowledged: malformed entries, unknown
// shipments and moves the shipment lifecycle forbids. Other failures are
// returned so the entry is redelivered.
func (h *Handler) Handle(ctx context.Context, msg bus.Message) error {
	evt, err := ParseCarrierEvent(msg)
	if err != nil {
		h.logger.Warn("dropping malformed carrier event",
			slog.String("stream", msg.Stream),
			slog.String("id", msg.ID),
			slog.Any("error", err),
		)
		return nil
	}

	var changed bool
	applied, err := h.guard.Run(ctx, evt.EventID, evt.EventType, ConsumerName, func(ctx context.Context) error {
		var err error
		_, changed, err = h.shipments.ApplyCarrierUpdate(ctx, evt.ShipmentID, evt.Target)
		return err
	})
	if err != nil {
		var transitionErr *statemachine.InvalidStateTransitionError
		if errors.Is(err, shipmentDomain.ErrShipmentNotFound) || errors.As(err, &transitionErr) {
			h.logger.Warn("carrier event cannot be applied",
				slog.String("event_id", evt.EventID),
				slog.String("event_type", evt.EventType),
				slog.String("shipment_id", evt.ShipmentID.String()),
				slog.Any("error", err),
			)
			return nil
		}
		return err
	}

	if applied && changed {
		h.logger.Info("carrier event applied",
			slog.String("event_id", evt.EventID),
			slog.String("shipment_id", evt.ShipmentID.String()),
			slog.String("status", string(evt.Target)),
			slog.Time("occurred_at", evt.OccurredAt),
		)
	}
	return nil
}
