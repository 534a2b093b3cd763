// Package usecase orchestrates shipment lifecycle changes and propagates
// carrier progress to the owning order.
package usecase

import (
	"context"

	"github.com/google/uuid"

	orderDomain "github.com/allisson/orderbus/internal/order/domain"
	shipmentDomain "github.com/allisson/orderbus/internal/shipment/domain"
)

// ShipmentRepository defines shipment persistence operations.
type ShipmentRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*shipmentDomain.Shipment, error)
	Update(ctx context.Context, shipment *shipmentDomain.Shipment) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*shipmentDomain.Shipment, error)
}

// OrderRepository is the part of order persistence the cascade needs.
type OrderRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*orderDomain.Order, error)
	Update(ctx context.Context, order *orderDomain.Order) error
}

// ShipmentUseCase defines shipment business operations.
type ShipmentUseCase interface {
	Get(ctx context.Context, id uuid.UUID) (*shipmentDomain.Shipment, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*shipmentDomain.Shipment, error)

	// Transition moves the shipment to target and advances the order when the
	// new status implies it.
	Transition(
		ctx context.Context,
		id uuid.UUID,
		target shipmentDomain.Status,
	) (*shipmentDomain.Shipment, error)

	// ApplyCarrierUpdate is Transition for inbound carrier events. An update to
	// the current status that is not a listed self-transition is a no-op and
	// reports applied=false.
	ApplyCarrierUpdate(
		ctx context.Context,
		id uuid.UUID,
		target shipmentDomain.Status,
	) (shipment *shipmentDomain.Shipment, applied bool, err error)
}
