package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/orderbus/internal/bus"
	"github.com/allisson/orderbus/internal/events"
	"github.com/allisson/orderbus/internal/webhook/domain"
)

// FanoutConsumer is the idempotency consumer name of the fan-out handler.
const FanoutConsumer = "webhook-fanout"

// FanoutUseCase turns published events into PENDING deliveries.
type FanoutUseCase struct {
	guard            Guard
	subscriptionRepo SubscriptionRepository
	deliveryRepo     DeliveryRepository
	logger           *slog.Logger
	now              func() time.Time
}

// NewFanoutUseCase creates a FanoutUseCase.
func NewFanoutUseCase(
	guard Guard,
	subscriptionRepo SubscriptionRepository,
	deliveryRepo DeliveryRepository,
	logger *slog.Logger,
) *FanoutUseCase {
	return &FanoutUseCase{
		guard:            guard,
		subscriptionRepo: subscriptionRepo,
		deliveryRepo:     deliveryRepo,
		logger:           logger,
		now:              time.Now,
	}
}

// Handle queues one delivery per deliverable subscription of the event's
// seller. Entries that are not event envelopes are logged and acknowledged.
// A storage error is returned so the entry is redelivered.
func (uc *FanoutUseCase) Handle(ctx context.Context, msg bus.Message) error {
	env, err := msg.Envelope()
	if err != nil {
		uc.drop(msg, err)
		return nil
	}

	eventID, err := uuid.Parse(env.EventID)
	if err != nil {
		uc.drop(msg, err)
		return nil
	}

	evt, err := events.DecodeEnvelope(env.Value)
	if err != nil {
		uc.drop(msg, err)
		return nil
	}

	queued := 0
	applied, err := uc.guard.Run(ctx, env.EventID, env.EventType, FanoutConsumer, func(ctx context.Context) error {
		queued = 0
		subs, err := uc.subscriptionRepo.ListDeliverable(ctx, evt.SellerID, env.EventType)
		if err != nil {
			return err
		}

		now := uc.now()
		for _, sub := range subs {
			if !sub.CanDeliver() || !sub.Subscribes(env.EventType) {
				continue
			}
			d := domain.NewDelivery(sub, eventID, env.EventType, string(env.Value), now)
			if err := uc.deliveryRepo.Create(ctx, d); err != nil {
				return err
			}
			queued++
		}
		return nil
	})
	if err != nil {
		return err
	}

	if applied && queued > 0 && uc.logger != nil {
		uc.logger.Debug("webhook deliveries queued",
			slog.String("event_id", env.EventID),
			slog.String("event_type", env.EventType),
			slog.Int("count", queued),
		)
	}
	return nil
}

func (uc *FanoutUseCase) drop(msg bus.Message, err error) {
	if uc.logger == nil {
		return
	}
	uc.logger.Warn("dropping malformed bus entry",
		slog.String("stream", msg.Stream),
		slog.String("id", msg.ID),
		slog.Any("error", err),
	)
}
