package usecase

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/orderbus/internal/database"
	"github.com/allisson/orderbus/internal/events"
	orderDomain "github.com/allisson/orderbus/internal/order/domain"
	outboxUseCase "github.com/allisson/orderbus/internal/outbox/usecase"
	shipmentDomain "github.com/allisson/orderbus/internal/shipment/domain"
)

// orderTargets maps a shipment status to the order status it implies.
var orderTargets = map[shipmentDomain.Status]orderDomain.Status{
	shipmentDomain.StatusPickedUp:       orderDomain.StatusInTransit,
	shipmentDomain.StatusInTransit:      orderDomain.StatusInTransit,
	shipmentDomain.StatusOutForDelivery: orderDomain.StatusOutForDelivery,
	shipmentDomain.StatusDelivered:      orderDomain.StatusDelivered,
}

// deliveryPath is the forward chain an order walks while its shipment travels.
var deliveryPath = []orderDomain.Status{
	orderDomain.StatusShipped,
	orderDomain.StatusInTransit,
	orderDomain.StatusOutForDelivery,
	orderDomain.StatusDelivered,
}

// stepsTo returns the statuses between current (exclusive) and target
// (inclusive) on the delivery path, or nil when the order is elsewhere or
// already at or past target.
func stepsTo(current, target orderDomain.Status) []orderDomain.Status {
	from := slices.Index(deliveryPath, current)
	to := slices.Index(deliveryPath, target)
	if from < 0 || to < 0 || from >= to {
		return nil
	}
	return deliveryPath[from+1 : to+1]
}

type shipmentUseCase struct {
	txManager    database.TxManager
	shipmentRepo ShipmentRepository
	orderRepo    OrderRepository
	outboxRepo   outboxUseCase.EventCreator
	logger       *slog.Logger
	now          func() time.Time
}

// NewShipmentUseCase creates a new ShipmentUseCase.
func NewShipmentUseCase(
	txManager database.TxManager,
	shipmentRepo ShipmentRepository,
	orderRepo OrderRepository,
	outboxRepo outboxUseCase.EventCreator,
	logger *slog.Logger,
) ShipmentUseCase {
	return &shipmentUseCase{
		txManager:    txManager,
		shipmentRepo: shipmentRepo,
		orderRepo:    orderRepo,
		outboxRepo:   outboxRepo,
		logger:       logger,
		now:          time.Now,
	}
}

func (u *shipmentUseCase) Get(ctx context.Context, id uuid.UUID) (*shipmentDomain.Shipment, error) {
	return u.shipmentRepo.Get(ctx, id)
}

func (u *shipmentUseCase) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*shipmentDomain.Shipment, error) {
	return u.shipmentRepo.ListByOrder(ctx, orderID)
}

func (u *shipmentUseCase) Transition(
	ctx context.Context,
	id uuid.UUID,
	target shipmentDomain.Status,
) (*shipmentDomain.Shipment, error) {
	shipment, _, err := u.apply(ctx, id, target, false)
	return shipment, err
}

func (u *shipmentUseCase) ApplyCarrierUpdate(
	ctx context.Context,
	id uuid.UUID,
	target shipmentDomain.Status,
) (*shipmentDomain.Shipment, bool, error) {
	return u.apply(ctx, id, target, true)
}

func (u *shipmentUseCase) apply(
	ctx context.Context,
	id uuid.UUID,
	target shipmentDomain.Status,
	skipRepeated bool,
) (*shipmentDomain.Shipment, bool, error) {
	var (
		shipment *shipmentDomain.Shipment
		applied  bool
	)
	err := u.txManager.WithTx(ctx, func(ctx context.Context) error {
		s, err := u.shipmentRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		shipment = s

		if skipRepeated && s.Status == target && !s.CanTransitionTo(target) {
			return nil
		}

		now := u.now()
		changed, err := s.TransitionTo(target, now)
		if err != nil {
			return err
		}
		staged := []events.Event{changed}

		orderEvents, err := u.advanceOrder(ctx, s, now)
		if err != nil {
			return err
		}
		staged = append(staged, orderEvents...)

		if err := u.shipmentRepo.Update(ctx, s); err != nil {
			return err
		}
		if err := outboxUseCase.Stage(ctx, u.outboxRepo, staged...); err != nil {
			return err
		}

		applied = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if u.logger != nil {
		if applied {
			u.logger.Info("shipment status changed",
				slog.String("shipment_id", shipment.ID.String()),
				slog.String("status", string(shipment.Status)),
			)
		} else {
			u.logger.Debug("ignoring repeated shipment status",
				slog.String("shipment_id", shipment.ID.String()),
				slog.String("status", string(target)),
			)
		}
	}
	return shipment, applied, nil
}

// advanceOrder walks the order forward along the delivery path to the status
// implied by the shipment. Orders off the path or already there are left alone.
func (u *shipmentUseCase) advanceOrder(
	ctx context.Context,
	shipment *shipmentDomain.Shipment,
	now time.Time,
) ([]events.Event, error) {
	target, ok := orderTargets[shipment.Status]
	if !ok {
		return nil, nil
	}

	order, err := u.orderRepo.Get(ctx, shipment.OrderID)
	if err != nil {
		return nil, err
	}

	steps := stepsTo(order.Status, target)
	if len(steps) == 0 {
		if u.logger != nil && order.Status != target {
			u.logger.Warn("order not advanced by shipment",
				slog.String("order_id", order.ID.String()),
				slog.String("order_status", string(order.Status)),
				slog.String("shipment_status", string(shipment.Status)),
			)
		}
		return nil, nil
	}

	staged := make([]events.Event, 0, len(steps))
	for _, step := range steps {
		changed, err := order.TransitionTo(step, now)
		if err != nil {
			return nil, err
		}
		staged = append(staged, changed)
	}

	if err := u.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}
	return staged, nil
}
