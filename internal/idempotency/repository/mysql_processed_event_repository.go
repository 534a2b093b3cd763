package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/allisson/orderbus/internal/database"
	apperrors "github.com/allisson/orderbus/internal/errors"
	"github.com/allisson/orderbus/internal/idempotency/domain"
)

// MySQLProcessedEventRepository stores processed events in MySQL.
type MySQLProcessedEventRepository struct {
	db *sql.DB
}

// NewMySQLProcessedEventRepository creates a new MySQLProcessedEventRepository.
func NewMySQLProcessedEventRepository(db *sql.DB) *MySQLProcessedEventRepository {
	return &MySQLProcessedEventRepository{db: db}
}

// Insert records the event and reports whether a new row was written. An
// existing (event_id, consumer) row yields false without error.
func (r *MySQLProcessedEventRepository) Insert(ctx context.Context, event *domain.ProcessedEvent) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT IGNORE INTO processed_events (event_id, event_type, consumer, processed_at)
			  VALUES (?, ?, ?, ?)`

	result, err := querier.ExecContext(ctx, query, event.EventID, event.EventType, event.Consumer, event.ProcessedAt)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to insert processed event")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to get affected rows count")
	}
	return affected > 0, nil
}

// Exists reports whether consumer already applied eventID.
func (r *MySQLProcessedEventRepository) Exists(ctx context.Context, eventID, consumer string) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT EXISTS (SELECT 1 FROM processed_events WHERE event_id = ? AND consumer = ?)`

	var exists bool
	if err := querier.QueryRowContext(ctx, query, eventID, consumer).Scan(&exists); err != nil {
		return false, apperrors.Wrap(err, "failed to check processed event")
	}
	return exists, nil
}

// DeleteOlderThan removes records processed before olderThan.
func (r *MySQLProcessedEventRepository) DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM processed_events WHERE processed_at < ?`, olderThan)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete processed events")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows count")
	}
	return count, nil
}
