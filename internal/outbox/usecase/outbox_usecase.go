package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/orderbus/internal/bus"
	"github.com/allisson/orderbus/internal/database"
	"github.com/allisson/orderbus/internal/events"
	"github.com/allisson/orderbus/internal/metrics"
	"github.com/allisson/orderbus/internal/outbox/domain"
)

// Config holds outbox use case configuration
type Config struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

// OutboxUseCase publishes pending outbox rows to the message bus
type OutboxUseCase struct {
	config     Config
	txManager  database.TxManager
	outboxRepo OutboxEventRepository
	publisher  EventPublisher
	metrics    metrics.BusinessMetrics
	logger     *slog.Logger
	now        func() time.Time
}

// NewOutboxUseCase creates a new OutboxUseCase
func NewOutboxUseCase(
	config Config,
	txManager database.TxManager,
	outboxRepo OutboxEventRepository,
	publisher EventPublisher,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *OutboxUseCase {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if businessMetrics == nil {
		businessMetrics = metrics.NewNoOpBusinessMetrics()
	}
	return &OutboxUseCase{
		config:     config,
		txManager:  txManager,
		outboxRepo: outboxRepo,
		publisher:  publisher,
		metrics:    businessMetrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Start runs ProcessEvents on every tick until ctx is done
func (uc *OutboxUseCase) Start(ctx context.Context) error {
	if uc.logger != nil {
		uc.logger.Info("starting outbox publisher",
			slog.Duration("interval", uc.config.Interval),
			slog.Int("batch_size", uc.config.BatchSize),
			slog.Int("max_retries", uc.config.MaxRetries),
		)
	}

	ticker := time.NewTicker(uc.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if uc.logger != nil {
				uc.logger.Info("stopping outbox publisher")
			}
			return ctx.Err()
		case <-ticker.C:
			if err := uc.ProcessEvents(ctx); err != nil {
				if uc.logger != nil {
					uc.logger.Error("failed to process outbox events", slog.Any("error", err))
				}
			}
		}
	}
}

// ProcessEvents claims one batch of PENDING rows, oldest first, and publishes
// each. A failed publish bumps the retry count and, once MaxRetries is spent,
// parks the row as FAILED. Publish failures never fail the batch.
func (uc *OutboxUseCase) ProcessEvents(ctx context.Context) error {
	return uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		pending, err := uc.outboxRepo.GetPendingEvents(ctx, uc.config.BatchSize)
		if err != nil {
			return err
		}

		if len(pending) == 0 {
			return nil
		}

		if uc.logger != nil {
			uc.logger.Debug("publishing outbox events", slog.Int("count", len(pending)))
		}

		for _, event := range pending {
			start := uc.now()
			if err := uc.publish(ctx, event); err != nil {
				uc.record(ctx, start, metrics.StatusError)

				event.RecordFailure(err, uc.config.MaxRetries)
				if uc.logger != nil {
					uc.logger.Warn("failed to publish outbox event",
						slog.String("event_id", event.ID.String()),
						slog.String("event_type", event.EventType),
						slog.Int("retry_count", event.RetryCount),
						slog.String("status", string(event.Status)),
						slog.Any("error", err),
					)
				}

				if err := uc.outboxRepo.Update(ctx, event); err != nil {
					return err
				}
				continue
			}

			uc.record(ctx, start, metrics.StatusSuccess)
			event.MarkSent(uc.now())

			if err := uc.outboxRepo.Update(ctx, event); err != nil {
				return err
			}
		}

		return nil
	})
}

func (uc *OutboxUseCase) publish(ctx context.Context, event *domain.OutboxEvent) error {
	topic, err := events.Topic(event.EventType)
	if err != nil {
		return err
	}

	return uc.publisher.Publish(ctx, topic, bus.Envelope{
		EventID:       event.ID.String(),
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		Key:           event.AggregateID.String(),
		Value:         []byte(event.Payload),
	})
}

func (uc *OutboxUseCase) record(ctx context.Context, start time.Time, status string) {
	uc.metrics.RecordOperation(ctx, "outbox", "publish", status)
	uc.metrics.RecordDuration(ctx, "outbox", "publish", uc.now().Sub(start), status)
}

// Requeue moves a FAILED row back to PENDING with a fresh retry budget.
func (uc *OutboxUseCase) Requeue(ctx context.Context, id uuid.UUID) (*domain.OutboxEvent, error) {
	var event *domain.OutboxEvent
	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		event, err = uc.outboxRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := event.Requeue(); err != nil {
			return err
		}
		return uc.outboxRepo.Update(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	if uc.logger != nil {
		uc.logger.Info("outbox event requeued", slog.String("event_id", id.String()))
	}
	return event, nil
}

// ListByStatus returns rows with the given status, oldest first.
func (uc *OutboxUseCase) ListByStatus(
	ctx context.Context,
	status domain.OutboxEventStatus,
	offset, limit int,
) ([]*domain.OutboxEvent, error) {
	return uc.outboxRepo.ListByStatus(ctx, status, offset, limit)
}
