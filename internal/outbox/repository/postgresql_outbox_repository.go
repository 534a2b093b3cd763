// Package repository provides data persistence implementations for outbox entities.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/allisson/orderbus/internal/database"
	apperrors "github.com/allisson/orderbus/internal/errors"
	"github.com/allisson/orderbus/internal/outbox/domain"
)

const outboxColumns = `id, aggregate_type, aggregate_id, event_type, payload, status, retry_count,
	error_message, processed_at, created_at`

// PostgreSQLOutboxEventRepository handles outbox event persistence for PostgreSQL
type PostgreSQLOutboxEventRepository struct {
	db *sql.DB
}

// NewPostgreSQLOutboxEventRepository creates a new PostgreSQLOutboxEventRepository
func NewPostgreSQLOutboxEventRepository(db *sql.DB) *PostgreSQLOutboxEventRepository {
	return &PostgreSQLOutboxEventRepository{
		db: db,
	}
}

// Create inserts a new outbox event. Called inside the aggregate's transaction.
func (r *PostgreSQLOutboxEventRepository) Create(ctx context.Context, event *domain.OutboxEvent) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO outbox_events (` + outboxColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := querier.ExecContext(ctx, query, event.ID, event.AggregateType, event.AggregateID,
		event.EventType, event.Payload, event.Status, event.RetryCount, event.ErrorMessage,
		event.ProcessedAt, event.CreatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create outbox event")
	}
	return nil
}

// GetPendingEvents locks up to limit PENDING rows, oldest first, skipping rows
// already claimed by another publisher.
func (r *PostgreSQLOutboxEventRepository) GetPendingEvents(
	ctx context.Context,
	limit int,
) ([]*domain.OutboxEvent, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + outboxColumns + `
			  FROM outbox_events
			  WHERE status = $1
			  ORDER BY created_at ASC, id ASC
			  LIMIT $2
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, domain.OutboxEventStatusPending, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get pending outbox events")
	}
	return r.collect(rows)
}

// GetByIDForUpdate fetches and locks a single row.
func (r *PostgreSQLOutboxEventRepository) GetByIDForUpdate(
	ctx context.Context,
	id uuid.UUID,
) (*domain.OutboxEvent, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + outboxColumns + ` FROM outbox_events WHERE id = $1 FOR UPDATE`

	event, err := scanPostgreSQLOutboxEvent(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOutboxEventNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get outbox event")
	}
	return event, nil
}

// ListByStatus returns rows with the given status, oldest first.
func (r *PostgreSQLOutboxEventRepository) ListByStatus(
	ctx context.Context,
	status domain.OutboxEventStatus,
	offset, limit int,
) ([]*domain.OutboxEvent, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + outboxColumns + `
			  FROM outbox_events
			  WHERE status = $1
			  ORDER BY created_at ASC, id ASC
			  LIMIT $2 OFFSET $3`

	rows, err := querier.QueryContext(ctx, query, status, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list outbox events")
	}
	return r.collect(rows)
}

// Update persists the publish outcome of an event
func (r *PostgreSQLOutboxEventRepository) Update(ctx context.Context, event *domain.OutboxEvent) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_events
			  SET status = $1, retry_count = $2, error_message = $3, processed_at = $4
			  WHERE id = $5`

	result, err := querier.ExecContext(ctx, query, event.Status, event.RetryCount, event.ErrorMessage,
		event.ProcessedAt, event.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update outbox event")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows count")
	}
	if affected == 0 {
		return domain.ErrOutboxEventNotFound
	}
	return nil
}

// ListSentOlderThan returns up to limit SENT rows created before olderThan.
func (r *PostgreSQLOutboxEventRepository) ListSentOlderThan(
	ctx context.Context,
	olderThan time.Time,
	limit int,
) ([]*domain.OutboxEvent, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + outboxColumns + `
			  FROM outbox_events
			  WHERE status = $1 AND created_at < $2
			  ORDER BY created_at ASC, id ASC
			  LIMIT $3`

	rows, err := querier.QueryContext(ctx, query, domain.OutboxEventStatusSent, olderThan, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list sent outbox events")
	}
	return r.collect(rows)
}

// DeleteSentOlderThan removes SENT rows created before olderThan. When dryRun is
// true it only counts them.
func (r *PostgreSQLOutboxEventRepository) DeleteSentOlderThan(
	ctx context.Context,
	olderThan time.Time,
	dryRun bool,
) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	if dryRun {
		query := `SELECT COUNT(*) FROM outbox_events WHERE status = $1 AND created_at < $2`
		var count int64
		err := querier.QueryRowContext(ctx, query, domain.OutboxEventStatusSent, olderThan).Scan(&count)
		if err != nil {
			return 0, apperrors.Wrap(err, "failed to count outbox events")
		}
		return count, nil
	}

	query := `DELETE FROM outbox_events WHERE status = $1 AND created_at < $2`
	result, err := querier.ExecContext(ctx, query, domain.OutboxEventStatusSent, olderThan)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete outbox events")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows count")
	}
	return count, nil
}

// DeleteSentByIDs removes the given rows if they are still SENT.
func (r *PostgreSQLOutboxEventRepository) DeleteSentByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	querier := database.GetTx(ctx, r.db)

	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}

	query := `DELETE FROM outbox_events WHERE status = $1 AND id = ANY($2::uuid[])`
	result, err := querier.ExecContext(ctx, query, domain.OutboxEventStatusSent, pq.Array(raw))
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete outbox events")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows count")
	}
	return count, nil
}

func (r *PostgreSQLOutboxEventRepository) collect(rows *sql.Rows) ([]*domain.OutboxEvent, error) {
	defer rows.Close() //nolint:errcheck

	events := make([]*domain.OutboxEvent, 0)
	for rows.Next() {
		event, err := scanPostgreSQLOutboxEvent(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan outbox event")
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate outbox events")
	}
	return events, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostgreSQLOutboxEvent(s rowScanner) (*domain.OutboxEvent, error) {
	var event domain.OutboxEvent
	err := s.Scan(&event.ID, &event.AggregateType, &event.AggregateID, &event.EventType, &event.Payload,
		&event.Status, &event.RetryCount, &event.ErrorMessage, &event.ProcessedAt, &event.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &event, nil
}
