package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/orderbus/internal/database"
	apperrors "github.com/allisson/orderbus/internal/errors"
	"github.com/allisson/orderbus/internal/outbox/domain"
)

// MySQLOutboxEventRepository handles outbox event persistence for MySQL. UUIDs
// are stored as BINARY(16).
type MySQLOutboxEventRepository struct {
	db *sql.DB
}

// NewMySQLOutboxEventRepository creates a new MySQLOutboxEventRepository
func NewMySQLOutboxEventRepository(db *sql.DB) *MySQLOutboxEventRepository {
	return &MySQLOutboxEventRepository{
		db: db,
	}
}

// Create inserts a new outbox event. Called inside the aggregate's transaction.
func (r *MySQLOutboxEventRepository) Create(ctx context.Context, event *domain.OutboxEvent) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO outbox_events (` + outboxColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	idBytes, err := event.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal outbox event id")
	}
	aggregateIDBytes, err := event.AggregateID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal aggregate id")
	}

	_, err = querier.ExecContext(ctx, query, idBytes, event.AggregateType, aggregateIDBytes,
		event.EventType, event.Payload, event.Status, event.RetryCount, event.ErrorMessage,
		event.ProcessedAt, event.CreatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create outbox event")
	}
	return nil
}

// GetPendingEvents locks up to limit PENDING rows, oldest first, skipping rows
// already claimed by another publisher.
func (r *MySQLOutboxEventRepository) GetPendingEvents(
	ctx context.Context,
	limit int,
) ([]*domain.OutboxEvent, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + outboxColumns + `
			  FROM outbox_events
			  WHERE status = ?
			  ORDER BY created_at ASC, id ASC
			  LIMIT ?
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, domain.OutboxEventStatusPending, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get pending outbox events")
	}
	return r.collect(rows)
}

// GetByIDForUpdate fetches and locks a single row.
func (r *MySQLOutboxEventRepository) GetByIDForUpdate(
	ctx context.Context,
	id uuid.UUID,
) (*domain.OutboxEvent, error) {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal outbox event id")
	}

	query := `SELECT ` + outboxColumns + ` FROM outbox_events WHERE id = ? FOR UPDATE`

	event, err := scanMySQLOutboxEvent(querier.QueryRowContext(ctx, query, idBytes))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOutboxEventNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get outbox event")
	}
	return event, nil
}

// ListByStatus returns rows with the given status, oldest first.
func (r *MySQLOutboxEventRepository) ListByStatus(
	ctx context.Context,
	status domain.OutboxEventStatus,
	offset, limit int,
) ([]*domain.OutboxEvent, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + outboxColumns + `
			  FROM outbox_events
			  WHERE status = ?
			  ORDER BY created_at ASC, id ASC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, status, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list outbox events")
	}
	return r.collect(rows)
}

// Update persists the publish outcome of an event
func (r *MySQLOutboxEventRepository) Update(ctx context.Context, event *domain.OutboxEvent) error {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := event.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal outbox event id")
	}

	query := `UPDATE outbox_events
			  SET status = ?, retry_count = ?, error_message = ?, processed_at = ?
			  WHERE id = ?`

	result, err := querier.ExecContext(ctx, query, event.Status, event.RetryCount, event.ErrorMessage,
		event.ProcessedAt, idBytes)
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
func (r *MySQLOutboxEventRepository) ListSentOlderThan(
	ctx context.Context,
	olderThan time.Time,
	limit int,
) ([]*domain.OutboxEvent, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + outboxColumns + `
			  FROM outbox_events
			  WHERE status = ? AND created_at < ?
			  ORDER BY created_at ASC, id ASC
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, domain.OutboxEventStatusSent, olderThan, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list sent outbox events")
	}
	return r.collect(rows)
}

// DeleteSentOlderThan removes SENT rows created before olderThan. When dryRun is
// true it only counts them.
func (r *MySQLOutboxEventRepository) DeleteSentOlderThan(
	ctx context.Context,
	olderThan time.Time,
	dryRun bool,
) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	if dryRun {
		query := `SELECT COUNT(*) FROM outbox_events WHERE status = ? AND created_at < ?`
		var count int64
		err := querier.QueryRowContext(ctx, query, domain.OutboxEventStatusSent, olderThan).Scan(&count)
		if err != nil {
			return 0, apperrors.Wrap(err, "failed to count outbox events")
		}
		return count, nil
	}

	query := `DELETE FROM outbox_events WHERE status = ? AND created_at < ?`
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
func (r *MySQLOutboxEventRepository) DeleteSentByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	querier := database.GetTx(ctx, r.db)

	args := make([]any, 0, len(ids)+1)
	args = append(args, domain.OutboxEventStatusSent)
	for _, id := range ids {
		idBytes, err := id.MarshalBinary()
		if err != nil {
			return 0, apperrors.Wrap(err, "failed to marshal outbox event id")
		}
		args = append(args, idBytes)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	query := `DELETE FROM outbox_events WHERE status = ? AND id IN (` + placeholders + `)`

	result, err := querier.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete outbox events")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows count")
	}
	return count, nil
}

func (r *MySQLOutboxEventRepository) collect(rows *sql.Rows) ([]*domain.OutboxEvent, error) {
	defer rows.Close() //nolint:errcheck

	events := make([]*domain.OutboxEvent, 0)
	for rows.Next() {
		event, err := scanMySQLOutboxEvent(rows)
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

func scanMySQLOutboxEvent(s rowScanner) (*domain.OutboxEvent, error) {
	var event domain.OutboxEvent
	var idBytes, aggregateIDBytes []byte

	err := s.Scan(&idBytes, &event.AggregateType, &aggregateIDBytes, &event.EventType, &event.Payload,
		&event.Status, &event.RetryCount, &event.ErrorMessage, &event.ProcessedAt, &event.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := event.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, err
	}
	if err := event.AggregateID.UnmarshalBinary(aggregateIDBytes); err != nil {
		return nil, err
	}
	return &event, nil
}
