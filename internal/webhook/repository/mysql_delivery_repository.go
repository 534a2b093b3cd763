package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/orderbus/internal/database"
	apperrors "github.com/allisson/orderbus/internal/errors"
	"github.com/allisson/orderbus/internal/webhook/domain"
)

// MySQLDeliveryRepository stores webhook deliveries in MySQL. UUIDs are BINARY(16).
type MySQLDeliveryRepository struct {
	db *sql.DB
}

// NewMySQLDeliveryRepository creates a new MySQLDeliveryRepository.
func NewMySQLDeliveryRepository(db *sql.DB) *MySQLDeliveryRepository {
	return &MySQLDeliveryRepository{db: db}
}

// Create inserts a new delivery.
func (r *MySQLDeliveryRepository) Create(ctx context.Context, d *domain.Delivery) error {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := d.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal delivery id")
	}
	subIDBytes, err := d.SubscriptionID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal subscription id")
	}
	eventIDBytes, err := d.EventID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal event id")
	}

	query := `INSERT INTO webhook_deliveries (` + deliveryColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(ctx, query, idBytes, subIDBytes, eventIDBytes, d.EventType, d.Payload,
		d.Endpoint, d.Status, d.ResponseCode, d.ResponseBody, d.LastError, d.AttemptCount, d.NextRetryAt,
		d.CreatedAt, d.DeliveredAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create webhook delivery")
	}
	return nil
}

// GetForUpdate returns and locks the delivery with the given id.
func (r *MySQLDeliveryRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Delivery, error) {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal delivery id")
	}

	query := `SELECT ` + deliveryColumns + ` FROM webhook_deliveries WHERE id = ? FOR UPDATE`

	d, err := scanMySQLDelivery(querier.QueryRowContext(ctx, query, idBytes))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDeliveryNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get webhook delivery")
	}
	return d, nil
}

// ClaimDue locks up to limit due deliveries whose subscription can still
// deliver, earliest first, skipping rows held by another worker.
func (r *MySQLDeliveryRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*domain.Delivery, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT d.id, d.subscription_id, d.event_id, d.event_type, d.payload, d.endpoint, d.status,
			         d.response_code, d.response_body, d.last_error, d.attempt_count, d.next_retry_at,
			         d.created_at, d.delivered_at
			  FROM webhook_deliveries d
			  JOIN webhook_subscriptions s ON s.id = d.subscription_id
			  WHERE d.status IN (?, ?) AND d.next_retry_at <= ?
			    AND s.active AND s.failure_count < ?
			  ORDER BY d.next_retry_at ASC, d.id ASC
			  LIMIT ?
			  FOR UPDATE OF d SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, domain.DeliveryStatusPending, domain.DeliveryStatusRetrying,
		now, domain.FailureThreshold, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to claim webhook deliveries")
	}
	return collectMySQLDeliveries(rows)
}

// ListBySubscription returns a subscription's deliveries, newest first.
func (r *MySQLDeliveryRepository) ListBySubscription(
	ctx context.Context,
	subscriptionID uuid.UUID,
	offset, limit int,
) ([]*domain.Delivery, error) {
	querier := database.GetTx(ctx, r.db)

	subIDBytes, err := subscriptionID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal subscription id")
	}

	query := `SELECT ` + deliveryColumns + `
			  FROM webhook_deliveries
			  WHERE subscription_id = ?
			  ORDER BY created_at DESC, id DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, subIDBytes, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list webhook deliveries")
	}
	return collectMySQLDeliveries(rows)
}

// Update persists the outcome of an attempt.
func (r *MySQLDeliveryRepository) Update(ctx context.Context, d *domain.Delivery) error {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := d.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal delivery id")
	}

	query := `UPDATE webhook_deliveries
			  SET status = ?, response_code = ?, response_body = ?, last_error = ?,
			      attempt_count = ?, next_retry_at = ?, delivered_at = ?
			  WHERE id = ?`

	result, err := querier.ExecContext(ctx, query, d.Status, d.ResponseCode, d.ResponseBody, d.LastError,
		d.AttemptCount, d.NextRetryAt, d.DeliveredAt, idBytes)
	if err != nil {
		return apperrors.Wrap(err, "failed to update webhook delivery")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows count")
	}
	if affected == 0 {
		return domain.ErrDeliveryNotFound
	}
	return nil
}

func collectMySQLDeliveries(rows *sql.Rows) ([]*domain.Delivery, error) {
	defer rows.Close() //nolint:errcheck

	deliveries := make([]*domain.Delivery, 0)
	for rows.Next() {
		d, err := scanMySQLDelivery(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan webhook delivery")
		}
		deliveries = append(deliveries, d)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate webhook deliveries")
	}
	return deliveries, nil
}

func scanMySQLDelivery(s rowScanner) (*domain.Delivery, error) {
	var d domain.Delivery
	var idBytes, subIDBytes, eventIDBytes []byte

	err := s.Scan(&idBytes, &subIDBytes, &eventIDBytes, &d.EventType, &d.Payload, &d.Endpoint, &d.Status,
		&d.ResponseCode, &d.ResponseBody, &d.LastError, &d.AttemptCount, &d.NextRetryAt, &d.CreatedAt,
		&d.DeliveredAt)
	if err != nil {
		return nil, err
	}

	if err := d.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, err
	}
	if err := d.SubscriptionID.UnmarshalBinary(subIDBytes); err != nil {
		return nil, err
	}
	if err := d.EventID.UnmarshalBinary(eventIDBytes); err != nil {
		return nil, err
	}
	return &d, nil
}
