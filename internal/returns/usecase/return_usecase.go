package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/orderbus/internal/database"
	"github.com/allisson/orderbus/internal/events"
	orderDomain "github.com/allisson/orderbus/internal/order/domain"
	outboxUseCase "github.com/allisson/orderbus/internal/outbox/usecase"
	returnsDomain "github.com/allisson/orderbus/internal/returns/domain"
)

type returnUseCase struct {
	txManager  database.TxManager
	returnRepo ReturnRepository
	orderRepo  OrderRepository
	outboxRepo outboxUseCase.EventCreator
	logger     *slog.Logger
	now        func() time.Time
}

// NewReturnUseCase creates a new ReturnUseCase.
func NewReturnUseCase(
	txManager database.TxManager,
	returnRepo ReturnRepository,
	orderRepo OrderRepository,
	outboxRepo outboxUseCase.EventCreator,
	logger *slog.Logger,
) ReturnUseCase {
	return &returnUseCase{
		txManager:  txManager,
		returnRepo: returnRepo,
		orderRepo:  orderRepo,
		outboxRepo: outboxRepo,
		logger:     logger,
		now:        time.Now,
	}
}

func (u *returnUseCase) Request(ctx context.Context, orderID uuid.UUID, reason string) (*returnsDomain.Return, error) {
	var ret *returnsDomain.Return
	err := u.txManager.WithTx(ctx, func(ctx context.Context) error {
		order, err := u.orderRepo.Get(ctx, orderID)
		if err != nil {
			return err
		}

		now := u.now()
		r, requested, err := returnsDomain.NewReturn(order.ID, order.SellerID, reason, now)
		if err != nil {
			return err
		}
		changed, err := order.RequestReturn(now)
		if err != nil {
			return err
		}

		if err := u.orderRepo.Update(ctx, order); err != nil {
			return err
		}
		if err := u.returnRepo.Create(ctx, r); err != nil {
			return err
		}
		if err := outboxUseCase.Stage(ctx, u.outboxRepo, changed, requested); err != nil {
			return err
		}

		ret = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func (u *returnUseCase) Get(ctx context.Context, id uuid.UUID) (*returnsDomain.Return, error) {
	return u.returnRepo.Get(ctx, id)
}

func (u *returnUseCase) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*returnsDomain.Return, error) {
	return u.returnRepo.ListByOrder(ctx, orderID)
}

func (u *returnUseCase) Transition(
	ctx context.Context,
	id uuid.UUID,
	target returnsDomain.Status,
) (*returnsDomain.Return, error) {
	var ret *returnsDomain.Return
	err := u.txManager.WithTx(ctx, func(ctx context.Context) error {
		r, err := u.returnRepo.Get(ctx, id)
		if err != nil {
			return err
		}

		now := u.now()
		changed, err := r.TransitionTo(target, now)
		if err != nil {
			return err
		}
		staged := []events.Event{changed}

		orderEvent, err := u.settleOrder(ctx, r, now)
		if err != nil {
			return err
		}
		if orderEvent != nil {
			staged = append(staged, orderEvent)
		}

		if err := u.returnRepo.Update(ctx, r); err != nil {
			return err
		}
		if err := outboxUseCase.Stage(ctx, u.outboxRepo, staged...); err != nil {
			return err
		}

		ret = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if u.logger != nil {
		u.logger.Info("return status changed",
			slog.String("return_id", ret.ID.String()),
			slog.String("status", string(ret.Status)),
		)
	}
	return ret, nil
}

// settleOrder moves the order out of RETURN_REQUESTED once the return closes.
func (u *returnUseCase) settleOrder(
	ctx context.Context,
	ret *returnsDomain.Return,
	now time.Time,
) (*events.StatusChanged, error) {
	var target orderDomain.Status
	switch {
	case ret.Status == returnsDomain.StatusCompleted:
		target = orderDomain.StatusReturned
	case ret.IsClosedWithoutRefund():
		target = orderDomain.StatusDelivered
	default:
		return nil, nil
	}

	order, err := u.orderRepo.Get(ctx, ret.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != orderDomain.StatusReturnRequested {
		if u.logger != nil {
			u.logger.Warn("order not settled by return",
				slog.String("order_id", order.ID.String()),
				slog.String("order_status", string(order.Status)),
				slog.String("return_status", string(ret.Status)),
			)
		}
		return nil, nil
	}

	changed, err := order.TransitionTo(target, now)
	if err != nil {
		return nil, err
	}
	if err := u.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}
	return changed, nil
}
