// Package usecase orchestrates return requests and keeps the owning order in
// step with the return's outcome.
package usecase

import (
	"context"

	"github.com/google/uuid"

	orderDomain "github.com/allisson/orderbus/internal/order/domain"
	returnsDomain "github.com/allisson/orderbus/internal/returns/domain"
)

// ReturnRepository defines return persistence operations.
type ReturnRepository interface {
	Create(ctx context.Context, ret *returnsDomain.Return) error
	Get(ctx context.Context, id uuid.UUID) (*returnsDomain.Return, error)
	Update(ctx context.Context, ret *returnsDomain.Return) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*returnsDomain.Return, error)
}

// OrderRepository is the part of order persistence return flows need.
type OrderRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*orderDomain.Order, error)
	Update(ctx context.Context, order *orderDomain.Order) error
}

// ReturnUseCase defines return business operations.
type ReturnUseCase interface {
	// Request opens a return for a DELIVERED order and moves the order to
	// RETURN_REQUESTED.
	Request(ctx context.Context, orderID uuid.UUID, reason string) (*returnsDomain.Return, error)
	Get(ctx context.Context, id uuid.UUID) (*returnsDomain.Return, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*returnsDomain.Return, error)

	// Transition moves the return to target. COMPLETED moves the order to
	// RETURNED; REJECTED and CANCELLED move it back to DELIVERED.
	Transition(ctx context.Context, id uuid.UUID, target returnsDomain.Status) (*returnsDomain.Return, error)
}
