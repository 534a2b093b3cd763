// Package usecase implements the idempotent-consumption guard.
package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/allisson/orderbus/internal/database"
	apperrors "github.com/allisson/orderbus/internal/errors"
	"github.com/allisson/orderbus/internal/idempotency/domain"
)

// ProcessedEventRepository persists processed event records.
type ProcessedEventRepository interface {
	Insert(ctx context.Context, event *domain.ProcessedEvent) (bool, error)
	Exists(ctx context.Context, eventID, consumer string) (bool, error)
	DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error)
}

// Guard runs a handler at most once per (event id, consumer).
type Guard struct {
	txManager database.TxManager
	repo      ProcessedEventRepository
	logger    *slog.Logger
	now       func() time.Time
}

// NewGuard creates a Guard.
func NewGuard(txManager database.TxManager, repo ProcessedEventRepository, logger *slog.Logger) *Guard {
	return &Guard{
		txManager: txManager,
		repo:      repo,
		logger:    logger,
		now:       time.Now,
	}
}

// Run claims eventID for consumer and runs fn in the same transaction. The
// claim is an insert that ignores conflicts, so two deliveries of one event
// racing each other serialize on the primary key and only one runs fn.
//
// applied is false when the event had already been processed. When fn fails
// both its effects and the claim roll back and the error is returned, so the
// message can be redelivered.
func (g *Guard) Run(
	ctx context.Context,
	eventID, eventType, consumer string,
	fn func(ctx context.Context) error,
) (applied bool, err error) {
	record := &domain.ProcessedEvent{
		EventID:     eventID,
		EventType:   eventType,
		Consumer:    consumer,
		ProcessedAt: g.now().UTC(),
	}
	if err := record.Validate(); err != nil {
		return false, err
	}

	err = g.txManager.WithTx(ctx, func(ctx context.Context) error {
		inserted, err := g.repo.Insert(ctx, record)
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}
		if err := fn(ctx); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if !applied && g.logger != nil {
		g.logger.Debug("skipping duplicate event",
			slog.String("event_id", eventID),
			slog.String("event_type", eventType),
			slog.String("consumer", consumer),
		)
	}
	return applied, nil
}

// Exists reports whether consumer already applied eventID.
func (g *Guard) Exists(ctx context.Context, eventID, consumer string) (bool, error) {
	return g.repo.Exists(ctx, eventID, consumer)
}

// DeleteOlderThan drops records older than days. Redelivery of an event after
// its record is gone would apply it again, so days must exceed the longest
// redelivery window.
func (g *Guard) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	if days < 0 {
		return 0, apperrors.Wrap(apperrors.ErrInvalidInput, "days must be non-negative")
	}
	return g.repo.DeleteOlderThan(ctx, g.now().UTC().AddDate(0, 0, -days))
}

// StartRetention runs DeleteOlderThan on every tick until ctx is done.
func (g *Guard) StartRetention(ctx context.Context, days int, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			count, err := g.DeleteOlderThan(ctx, days)
			if g.logger == nil {
				continue
			}
			if err != nil {
				g.logger.Error("failed to sweep processed events", slog.Any("error", err))
				continue
			}
			if count > 0 {
				g.logger.Info("swept processed events", slog.Int64("count", count))
			}
		}
	}
}
