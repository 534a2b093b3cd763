package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/orderbus/internal/database"
	"github.com/allisson/orderbus/internal/events"
	orderDomain "github.com/allisson/orderbus/internal/order/domain"
	outboxUseCase "github.com/allisson/orderbus/internal/outbox/usecase"
	shipmentDomain "github.com/allisson/orderbus/internal/shipment/domain"
)

var manualTargets = map[orderDomain.Status]bool{
	orderDomain.StatusPaid:      true,
	orderDomain.StatusConfirmed: true,
	orderDomain.StatusPreparing: true,
	orderDomain.StatusCancelled: true,
}

type orderUseCase struct {
	txManager    database.TxManager
	orderRepo    OrderRepository
	shipmentRepo ShipmentRepository
	outboxRepo   outboxUseCase.EventCreator
	logger       *slog.Logger
	now          func() time.Time
}

// NewOrderUseCase creates a new OrderUseCase.
func NewOrderUseCase(
	txManager database.TxManager,
	orderRepo OrderRepository,
	shipmentRepo ShipmentRepository,
	outboxRepo outboxUseCase.EventCreator,
	logger *slog.Logger,
) OrderUseCase {
	return &orderUseCase{
		txManager:    txManager,
		orderRepo:    orderRepo,
		shipmentRepo: shipmentRepo,
		outboxRepo:   outboxRepo,
		logger:       logger,
		now:          time.Now,
	}
}

// Create persists a PENDING order and stages order.created.
func (u *orderUseCase) Create(ctx context.Context, input CreateOrderInput) (*orderDomain.Order, error) {
	order, created, err := orderDomain.NewOrder(
		input.SellerID, input.CustomerID, input.TotalAmount, input.Currency, u.now(),
	)
	if err != nil {
		return nil, err
	}

	err = u.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := u.orderRepo.Create(ctx, order); err != nil {
			return err
		}
		return outboxUseCase.Stage(ctx, u.outboxRepo, created)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (u *orderUseCase) Get(ctx context.Context, id uuid.UUID) (*orderDomain.Order, error) {
	return u.orderRepo.Get(ctx, id)
}

func (u *orderUseCase) ListBySeller(
	ctx context.Context,
	sellerID uuid.UUID,
	offset, limit int,
) ([]*orderDomain.Order, error) {
	return u.orderRepo.ListBySeller(ctx, sellerID, offset, limit)
}

// Transition applies a seller-driven move. Cancelling a SHIPPED order also
// cancels every shipment that can still be cancelled.
func (u *orderUseCase) Transition(
	ctx context.Context,
	id uuid.UUID,
	target orderDomain.Status,
) (*orderDomain.Order, error) {
	if !manualTargets[target] {
		return nil, fmt.Errorf("%w: status %s cannot be set directly", orderDomain.ErrInvalidOrder, target)
	}

	var order *orderDomain.Order
	err := u.txManager.WithTx(ctx, func(ctx context.Context) error {
		o, err := u.orderRepo.Get(ctx, id)
		if err != nil {
			return err
		}

		from := o.Status
		now := u.now()
		changed, err := o.TransitionTo(target, now)
		if err != nil {
			return err
		}
		staged := []events.Event{changed}

		if target == orderDomain.StatusCancelled && from == orderDomain.StatusShipped {
			cancelled, err := u.cancelShipments(ctx, o.ID, now)
			if err != nil {
				return err
			}
			staged = append(staged, cancelled...)
		}

		if err := u.orderRepo.Update(ctx, o); err != nil {
			return err
		}
		if err := outboxUseCase.Stage(ctx, u.outboxRepo, staged...); err != nil {
			return err
		}

		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	if u.logger != nil {
		u.logger.Info("order status changed",
			slog.String("order_id", order.ID.String()),
			slog.String("status", string(order.Status)),
		)
	}
	return order, nil
}

func (u *orderUseCase) cancelShipments(ctx context.Context, orderID uuid.UUID, now time.Time) ([]events.Event, error) {
	shipments, err := u.shipmentRepo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var staged []events.Event
	for _, shipment := range shipments {
		if !shipment.CanTransitionTo(shipmentDomain.StatusCancelled) {
			continue
		}
		changed, err := shipment.Cancel(now)
		if err != nil {
			return nil, err
		}
		if err := u.shipmentRepo.Update(ctx, shipment); err != nil {
			return nil, err
		}
		staged = append(staged, changed)
	}
	return staged, nil
}

// Ship moves the order to SHIPPED and creates a PENDING shipment for it.
func (u *orderUseCase) Ship(
	ctx context.Context,
	id uuid.UUID,
	carrier, trackingNumber string,
) (*orderDomain.Order, *shipmentDomain.Shipment, error) {
	var (
		order    *orderDomain.Order
		shipment *shipmentDomain.Shipment
	)
	err := u.txManager.WithTx(ctx, func(ctx context.Context) error {
		o, err := u.orderRepo.Get(ctx, id)
		if err != nil {
			return err
		}

		now := u.now()
		s, created, err := shipmentDomain.NewShipment(o.ID, o.SellerID, carrier, trackingNumber, now)
		if err != nil {
			return err
		}
		changed, err := o.Ship(now)
		if err != nil {
			return err
		}

		if err := u.orderRepo.Update(ctx, o); err != nil {
			return err
		}
		if err := u.shipmentRepo.Create(ctx, s); err != nil {
			return err
		}
		if err := outboxUseCase.Stage(ctx, u.outboxRepo, changed, created); err != nil {
			return err
		}

		order, shipment = o, s
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return order, shipment, nil
}
