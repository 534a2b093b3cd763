package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/orderbus/internal/database"
	"github.com/allisson/orderbus/internal/webhook/domain"
	"github.com/allisson/orderbus/internal/webhook/service"
)

type subscriptionUseCase struct {
	txManager        database.TxManager
	subscriptionRepo SubscriptionRepository
	deliveryRepo     DeliveryRepository
	cipher           SecretCipher
	logger           *slog.Logger
	now              func() time.Time
}

// NewSubscriptionUseCase creates a SubscriptionUseCase.
func NewSubscriptionUseCase(
	txManager database.TxManager,
	subscriptionRepo SubscriptionRepository,
	deliveryRepo DeliveryRepository,
	cipher SecretCipher,
	logger *slog.Logger,
) SubscriptionUseCase {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &subscriptionUseCase{
		txManager:        txManager,
		subscriptionRepo: subscriptionRepo,
		deliveryRepo:     deliveryRepo,
		cipher:           cipher,
		logger:           logger,
		now:              time.Now,
	}
}

func (uc *subscriptionUseCase) Create(
	ctx context.Context,
	input CreateSubscriptionInput,
) (*domain.Subscription, string, error) {
	secret, err := service.GenerateSecret()
	if err != nil {
		return nil, "", err
	}

	sub, err := domain.NewSubscription(input.OwnerID, input.Name, input.EndpointURL, secret, input.EventTypes, uc.now())
	if err != nil {
		return nil, "", err
	}

	stored, err := uc.cipher.Encrypt(ctx, secret)
	if err != nil {
		return nil, "", err
	}
	sub.Secret = stored

	if err := uc.subscriptionRepo.Create(ctx, sub); err != nil {
		return nil, "", err
	}

	uc.logger.Info("webhook subscription created",
		slog.String("subscription_id", sub.ID.String()),
		slog.String("owner_id", sub.OwnerID.String()),
	)
	return sub, secret, nil
}

func (uc *subscriptionUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	return uc.subscriptionRepo.Get(ctx, id)
}

func (uc *subscriptionUseCase) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	offset, limit int,
) ([]*domain.Subscription, error) {
	return uc.subscriptionRepo.ListByOwner(ctx, ownerID, offset, limit)
}

func (uc *subscriptionUseCase) Reactivate(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	sub, err := uc.mutate(ctx, id, func(sub *domain.Subscription) error {
		sub.Reactivate(uc.now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("webhook subscription reactivated", slog.String("subscription_id", id.String()))
	return sub, nil
}

func (uc *subscriptionUseCase) Deactivate(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	sub, err := uc.mutate(ctx, id, func(sub *domain.Subscription) error {
		sub.Deactivate(uc.now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("webhook subscription deactivated", slog.String("subscription_id", id.String()))
	return sub, nil
}

func (uc *subscriptionUseCase) RotateSecret(ctx context.Context, id uuid.UUID) (*domain.Subscription, string, error) {
	secret, err := service.GenerateSecret()
	if err != nil {
		return nil, "", err
	}

	sub, err := uc.mutate(ctx, id, func(sub *domain.Subscription) error {
		stored, err := uc.cipher.Encrypt(ctx, secret)
		if err != nil {
			return err
		}
		sub.RotateSecret(stored, uc.now())
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	uc.logger.Info("webhook secret rotated", slog.String("subscription_id", id.String()))
	return sub, secret, nil
}

func (uc *subscriptionUseCase) mutate(
	ctx context.Context,
	id uuid.UUID,
	fn func(sub *domain.Subscription) error,
) (*domain.Subscription, error) {
	var sub *domain.Subscription
	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		sub, err = uc.subscriptionRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(sub); err != nil {
			return err
		}
		return uc.subscriptionRepo.Update(ctx, sub)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (uc *subscriptionUseCase) ListDeliveries(
	ctx context.Context,
	subscriptionID uuid.UUID,
	offset, limit int,
) ([]*domain.Delivery, error) {
	if _, err := uc.subscriptionRepo.Get(ctx, subscriptionID); err != nil {
		return nil, err
	}
	return uc.deliveryRepo.ListBySubscription(ctx, subscriptionID, offset, limit)
}

func (uc *subscriptionUseCase) RequeueDelivery(ctx context.Context, id uuid.UUID) (*domain.Delivery, error) {
	var d *domain.Delivery
	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		d, err = uc.deliveryRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := d.Requeue(uc.now()); err != nil {
			return err
		}
		return uc.deliveryRepo.Update(ctx, d)
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("webhook delivery requeued", slog.String("delivery_id", id.String()))
	return d, nil
}
