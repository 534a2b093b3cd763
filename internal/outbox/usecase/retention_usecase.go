package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/orderbus/internal/database"
	apperrors "github.com/allisson/orderbus/internal/errors"
	"github.com/allisson/orderbus/internal/metrics"
	"github.com/allisson/orderbus/internal/outbox/domain"
)

// RetentionConfig controls the sweep of SENT rows.
type RetentionConfig struct {
	Days      int
	Interval  time.Duration
	BatchSize int
}

type cleanupUseCase struct {
	config    RetentionConfig
	txManager database.TxManager
	repo      OutboxEventRepository
	archiver  Archiver
	metrics   metrics.BusinessMetrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewCleanupUseCase creates the retention sweep. archiver may be nil, in which
// case rows are deleted without being archived.
func NewCleanupUseCase(
	config RetentionConfig,
	txManager database.TxManager,
	repo OutboxEventRepository,
	archiver Archiver,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) CleanupUseCase {
	if config.BatchSize <= 0 {
		config.BatchSize = 500
	}
	if businessMetrics == nil {
		businessMetrics = metrics.NewNoOpBusinessMetrics()
	}
	return &cleanupUseCase{
		config:    config,
		txManager: txManager,
		repo:      repo,
		archiver:  archiver,
		metrics:   businessMetrics,
		logger:    logger,
		now:       time.Now,
	}
}

// DeleteSentOlderThan removes SENT rows created more than days ago. PENDING and
// FAILED rows are never touched. With dryRun it only counts.
func (c *cleanupUseCase) DeleteSentOlderThan(ctx context.Context, days int, dryRun bool) (int64, error) {
	if days < 0 {
		return 0, apperrors.Wrap(apperrors.ErrInvalidInput, "days must be non-negative")
	}

	start := c.now()
	cutoff := start.UTC().AddDate(0, 0, -days)

	var (
		count int64
		err   error
	)
	switch {
	case dryRun:
		count, err = c.repo.DeleteSentOlderThan(ctx, cutoff, true)
	case c.archiver == nil:
		count, err = c.repo.DeleteSentOlderThan(ctx, cutoff, false)
	default:
		count, err = c.archiveAndDelete(ctx, cutoff)
	}

	status := metrics.StatusOf(err)
	c.metrics.RecordOperation(ctx, "outbox", "retention", status)
	c.metrics.RecordDuration(ctx, "outbox", "retention", c.now().Sub(start), status)

	return count, err
}

func (c *cleanupUseCase) archiveAndDelete(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	for {
		var batch int
		err := c.txManager.WithTx(ctx, func(ctx context.Context) error {
			rows, err := c.repo.ListSentOlderThan(ctx, cutoff, c.config.BatchSize)
			if err != nil {
				return err
			}
			batch = len(rows)
			if batch == 0 {
				return nil
			}

			records := make([]any, len(rows))
			ids := make([]uuid.UUID, len(rows))
			for i, row := range rows {
				records[i] = newArchivedEvent(row)
				ids[i] = row.ID
			}

			if err := c.archiver.Write(ctx, archiveKey(c.now(), rows[0].ID), records); err != nil {
				return err
			}

			deleted, err := c.repo.DeleteSentByIDs(ctx, ids)
			if err != nil {
				return err
			}
			total += deleted
			return nil
		})
		if err != nil {
			return total, err
		}
		if batch < c.config.BatchSize {
			return total, nil
		}
	}
}

// StartRetention sweeps on every tick until ctx is done.
func (c *cleanupUseCase) StartRetention(ctx context.Context) error {
	if c.logger != nil {
		c.logger.Info("starting outbox retention sweep",
			slog.Int("days", c.config.Days),
			slog.Duration("interval", c.config.Interval),
			slog.Bool("archive", c.archiver != nil),
		)
	}

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if c.logger != nil {
				c.logger.Info("stopping outbox retention sweep")
			}
			return ctx.Err()
		case <-ticker.C:
			count, err := c.DeleteSentOlderThan(ctx, c.config.Days, false)
			if c.logger == nil {
				continue
			}
			if err != nil {
				c.logger.Error("failed to sweep outbox events", slog.Any("error", err))
				continue
			}
			if count > 0 {
				c.logger.Info("swept outbox events", slog.Int64("count", count))
			}
		}
	}
}

type archivedEvent struct {
	ID            uuid.UUID  `json:"id"`
	AggregateType string     `json:"aggregateType"`
	AggregateID   uuid.UUID  `json:"aggregateId"`
	EventType     string     `json:"eventType"`
	Payload       string     `json:"payload"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retryCount"`
	ProcessedAt   *time.Time `json:"processedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func newArchivedEvent(e *domain.OutboxEvent) archivedEvent {
	return archivedEvent{
		ID:            e.ID,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		EventType:     e.EventType,
		Payload:       e.Payload,
		Status:        string(e.Status),
		RetryCount:    e.RetryCount,
		ProcessedAt:   e.ProcessedAt,
		CreatedAt:     e.CreatedAt,
	}
}

// archiveKey yields outbox/YYYY/MM/DD/<unix-nanos>-<first id>.jsonl
func archiveKey(now time.Time, firstID uuid.UUID) string {
	now = now.UTC()
	return fmt.Sprintf("outbox/%s/%d-%s.jsonl", now.Format("2006/01/02"), now.UnixNano(), firstID)
}
