package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/orderbus/internal/database"
	"github.com/allisson/orderbus/internal/events"
	"github.com/allisson/orderbus/internal/metrics"
	"github.com/allisson/orderbus/internal/webhook/domain"
	"github.com/allisson/orderbus/internal/webhook/service"
)

// DeliveryConfig holds delivery worker configuration.
type DeliveryConfig struct {
	Interval    time.Duration
	BatchSize   int
	Concurrency int
}

// DeliveryUseCase attempts due webhook deliveries.
type DeliveryUseCase struct {
	config           DeliveryConfig
	txManager        database.TxManager
	deliveryRepo     DeliveryRepository
	subscriptionRepo SubscriptionRepository
	sender           Sender
	cipher           SecretCipher
	metrics          metrics.BusinessMetrics
	logger           *slog.Logger
	now              func() time.Time
}

// NewDeliveryUseCase creates a DeliveryUseCase.
func NewDeliveryUseCase(
	config DeliveryConfig,
	txManager database.TxManager,
	deliveryRepo DeliveryRepository,
	subscriptionRepo SubscriptionRepository,
	sender Sender,
	cipher SecretCipher,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *DeliveryUseCase {
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if businessMetrics == nil {
		businessMetrics = metrics.NewNoOpBusinessMetrics()
	}
	return &DeliveryUseCase{
		config:           config,
		txManager:        txManager,
		deliveryRepo:     deliveryRepo,
		subscriptionRepo: subscriptionRepo,
		sender:           sender,
		cipher:           cipher,
		metrics:          businessMetrics,
		logger:           logger,
		now:              time.Now,
	}
}

// Start runs ProcessDeliveries on every tick until ctx is done.
func (uc *DeliveryUseCase) Start(ctx context.Context) error {
	if uc.logger != nil {
		uc.logger.Info("starting webhook delivery worker",
			slog.Duration("interval", uc.config.Interval),
			slog.Int("batch_size", uc.config.BatchSize),
			slog.Int("concurrency", uc.config.Concurrency),
		)
	}

	ticker := time.NewTicker(uc.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if uc.logger != nil {
				uc.logger.Info("stopping webhook delivery worker")
			}
			return ctx.Err()
		case <-ticker.C:
			if err := uc.ProcessDeliveries(ctx); err != nil {
				if uc.logger != nil {
					uc.logger.Error("failed to process webhook deliveries", slog.Any("error", err))
				}
			}
		}
	}
}

type deliveryBatch struct {
	sub        *domain.Subscription
	deliveries []*domain.Delivery
	attempted  []*domain.Delivery
}

// ProcessDeliveries claims one batch of due deliveries and attempts them.
// Subscriptions are attempted concurrently up to Concurrency; the deliveries
// of one subscription run in order and stop as soon as its breaker opens.
// Outcomes are persisted row by row after every attempt has finished.
func (uc *DeliveryUseCase) ProcessDeliveries(ctx context.Context) error {
	return uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		due, err := uc.deliveryRepo.ClaimDue(ctx, uc.now().UTC(), uc.config.BatchSize)
		if err != nil {
			return err
		}
		if len(due) == 0 {
			return nil
		}

		batches, err := uc.group(ctx, due)
		if err != nil {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(uc.config.Concurrency)
		for _, b := range batches {
			g.Go(func() error {
				uc.attempt(gctx, b)
				return nil
			})
		}
		_ = g.Wait()

		for _, b := range batches {
			uc.persist(ctx, b)
		}
		return nil
	})
}

// persist writes each attempted delivery and then the subscription, each in
// its own savepoint. A row that cannot be written is logged and keeps its
// previous state while the rest of the batch commits. A delivery whose write
// fails is retried once without its response body.
func (uc *DeliveryUseCase) persist(ctx context.Context, b *deliveryBatch) {
	if len(b.attempted) == 0 {
		return
	}

	for _, d := range b.attempted {
		err := uc.saveDelivery(ctx, d)
		if err != nil && d.ResponseBody != nil {
			uc.logPersistError(ctx, slog.LevelWarn, "storing webhook delivery without response body", b.sub, d, err)
			d.ResponseBody = nil
			err = uc.saveDelivery(ctx, d)
		}
		if err != nil {
			uc.logPersistError(ctx, slog.LevelError, "failed to persist webhook delivery", b.sub, d, err)
		}
	}

	err := database.Savepoint(ctx, "webhook_subscription", func(ctx context.Context) error {
		return uc.subscriptionRepo.Update(ctx, b.sub)
	})
	if err != nil {
		uc.logPersistError(ctx, slog.LevelError, "failed to persist webhook subscription", b.sub, nil, err)
	}
}

func (uc *DeliveryUseCase) saveDelivery(ctx context.Context, d *domain.Delivery) error {
	return database.Savepoint(ctx, "webhook_delivery", func(ctx context.Context) error {
		return uc.deliveryRepo.Update(ctx, d)
	})
}

func (uc *DeliveryUseCase) logPersistError(
	ctx context.Context,
	level slog.Level,
	msg string,
	sub *domain.Subscription,
	d *domain.Delivery,
	err error,
) {
	if uc.logger == nil {
		return
	}
	attrs := []slog.Attr{
		slog.String("subscription_id", sub.ID.String()),
		slog.Any("error", err),
	}
	if d != nil {
		attrs = append(attrs, slog.String("delivery_id", d.ID.String()))
	}
	uc.logger.LogAttrs(ctx, level, msg, attrs...)
}

// group locks the subscriptions of the claimed deliveries and splits the
// deliveries per subscription, keeping claim order.
func (uc *DeliveryUseCase) group(ctx context.Context, due []*domain.Delivery) ([]*deliveryBatch, error) {
	byID := make(map[uuid.UUID]*deliveryBatch)
	order := make([]uuid.UUID, 0)
	for _, d := range due {
		b, ok := byID[d.SubscriptionID]
		if !ok {
			b = &deliveryBatch{}
			byID[d.SubscriptionID] = b
			order = append(order, d.SubscriptionID)
		}
		b.deliveries = append(b.deliveries, d)
	}

	subs, err := uc.subscriptionRepo.ListByIDsForUpdate(ctx, order)
	if err != nil {
		return nil, err
	}
	for _, sub := range subs {
		if b, ok := byID[sub.ID]; ok {
			b.sub = sub
		}
	}

	batches := make([]*deliveryBatch, 0, len(order))
	for _, id := range order {
		if b := byID[id]; b.sub != nil {
			batches = append(batches, b)
		}
	}
	return batches, nil
}

func (uc *DeliveryUseCase) attempt(ctx context.Context, b *deliveryBatch) {
	secret, err := uc.cipher.Decrypt(ctx, b.sub.Secret)
	if err != nil {
		if uc.logger != nil {
			uc.logger.Error("failed to decrypt webhook secret",
				slog.String("subscription_id", b.sub.ID.String()),
				slog.Any("error", err),
			)
		}
		return
	}

	for _, d := range b.deliveries {
		if !b.sub.CanDeliver() {
			return
		}

		start := uc.now()
		resp, err := uc.sender.Send(ctx, service.Request{
			DeliveryID: d.ID,
			Endpoint:   d.Endpoint,
			Secret:     secret,
			EventType:  d.EventType,
			Payload:    json.RawMessage(d.Payload),
			OccurredAt: occurredAt(d),
		})
		now := uc.now()
		b.attempted = append(b.attempted, d)

		if err == nil {
			d.RecordSuccess(resp.StatusCode, resp.Body, now)
			b.sub.RecordSuccess(now)
			uc.record(ctx, start, now, metrics.StatusSuccess)
			continue
		}

		d.RecordFailure(resp.StatusCode, resp.Body, err, now)
		b.sub.RecordFailure(now)
		uc.record(ctx, start, now, metrics.StatusError)

		if uc.logger == nil {
			continue
		}
		uc.logger.Warn("webhook delivery failed",
			slog.String("delivery_id", d.ID.String()),
			slog.String("subscription_id", b.sub.ID.String()),
			slog.Int("attempt_count", d.AttemptCount),
			slog.String("status", string(d.Status)),
			slog.Any("error", err),
		)
		if !b.sub.Active {
			uc.logger.Warn("webhook subscription deactivated",
				slog.String("subscription_id", b.sub.ID.String()),
				slog.Int("failure_count", b.sub.FailureCount),
			)
		}
	}
}

func (uc *DeliveryUseCase) record(ctx context.Context, start, end time.Time, status string) {
	uc.metrics.RecordOperation(ctx, "webhook", "deliver", status)
	uc.metrics.RecordDuration(ctx, "webhook", "deliver", end.Sub(start), status)
}

func occurredAt(d *domain.Delivery) time.Time {
	if env, err := events.DecodeEnvelope([]byte(d.Payload)); err == nil && !env.OccurredAt.IsZero() {
		return env.OccurredAt
	}
	return d.CreatedAt
}
