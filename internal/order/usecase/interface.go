// Package usecase orchestrates order lifecycle changes. Every change is written
// together with its outbox rows in one transaction.
package usecase

import (
	"context"

	"github.com/google/uuid"

	orderDomain "github.com/allisson/orderbus/internal/order/domain"
	shipmentDomain "github.com/allisson/orderbus/internal/shipment/domain"
)

// OrderRepository defines order persistence operations.
type OrderRepository interface {
	Create(ctx context.Context, order *orderDomain.Order) error
	Get(ctx context.Context, id uuid.UUID) (*orderDomain.Order, error)
	Update(ctx context.Context, order *orderDomain.Order) error
	ListBySeller(ctx context.Context, sellerID uuid.UUID, offset, limit int) ([]*orderDomain.Order, error)
}

// ShipmentRepository is the part of shipment persistence the order flows touch.
type ShipmentRepository interface {
	Create(ctx context.Context, shipment *shipmentDomain.Shipment) error
	Update(ctx context.Context, shipment *shipmentDomain.Shipment) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*shipmentDomain.Shipment, error)
}

// CreateOrderInput holds the fields of a new order.
type CreateOrderInput struct {
	SellerID    uuid.UUID
	CustomerID  uuid.UUID
	TotalAmount int64
	Currency    string
}

// OrderUseCase defines order business operations.
type OrderUseCase interface {
	Create(ctx context.Context, input CreateOrderInput) (*orderDomain.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*orderDomain.Order, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, offset, limit int) ([]*orderDomain.Order, error)

	// Transition applies a seller-driven move: PAID, CONFIRMED, PREPARING or
	// CANCELLED. Later states are driven by shipments and returns.
	Transition(ctx context.Context, id uuid.UUID, target orderDomain.Status) (*orderDomain.Order, error)

	// Ship moves a PREPARING order to SHIPPED and creates its shipment.
	Ship(
		ctx context.Context,
		id uuid.UUID,
		carrier, trackingNumber string,
	) (*orderDomain.Order, *shipmentDomain.Shipment, error)
}
