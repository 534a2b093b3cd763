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

const deliveryColumns = `id, subscription_id, event_id, event_type, payload, endpoint, status, response_code,
	response_body, last_error, attempt_count, next_retry_at, created_at, delivered_at`

// PostgreSQLDeliveryRepository stores webhook deliveries in PostgreSQL.
type PostgreSQLDeliveryRepository struct {
	db *sql.DB
}

// NewPostgreSQLDeliveryRepository creates a new PostgreSQLDeliveryRepository.
func NewPostgreSQLDeliveryRepository(db *sql.DB) *PostgreSQLDeliveryRepository {
	return &PostgreSQLDeliveryRepository{db: db}
}

// Create inserts a new delivery.
func (r *PostgreSQLDeliveryRepository) Create(ctx context.Context, d *domain.Delivery) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO webhook_deliveries (` + deliveryColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := querier.ExecContext(ctx, query, d.ID, d.SubscriptionID, d.EventID, d.EventType, d.Payload,
		d.Endpoint, d.Status, d.ResponseCode, d.ResponseBody, d.LastError, d.AttemptCount, d.NextRetryAt,
		d.CreatedAt, d.DeliveredAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create webhook delivery")
	}
	return nil
}

// GetForUpdate returns and locks the delivery with the given id.
func (r *PostgreSQLDeliveryRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Delivery, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + deliveryColumns + ` FROM webhook_deliveries WHERE id = $1 FOR UPDATE`

	d, err := scanPostgreSQLDelivery(querier.QueryRowContext(ctx, query, id))
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
func (r *PostgreSQLDeliveryRepository) ClaimDue(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*domain.Delivery, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT d.id, d.subscription_id, d.event_id, d.event_type, d.payload, d.endpoint, d.status,
			         d.response_code, d.response_body, d.last_error, d.attempt_count, d.next_retry_at,
			         d.created_at, d.delivered_at
			  FROM webhook_deliveries d
			  JOIN webhook_subscriptions s ON s.id = d.subscription_id
			  WHERE d.status IN ($1, $2) AND d.next_retry_at <= $3
			    AND s.active AND s.failure_count < $4
			  ORDER BY d.next_retry_at ASC, d.id ASC
			  LIMIT $5
			  FOR UPDATE OF d SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, domain.DeliveryStatusPending, domain.DeliveryStatusRetrying,
		now, domain.FailureThreshold, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to claim webhook deliveries")
	}
	return collectPostgreSQLDeliveries(rows)
}

// ListBySubscription returns a subscription's deliveries, newest first.
func (r *PostgreSQLDeliveryRepository) ListBySubscription(
	ctx context.Context,
	subscriptionID uuid.UUID,
	offset, limit int,
) ([]*domain.Delivery, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + deliveryColumns + `
			  FROM webhook_deliveries
			  WHERE subscription_id = $1
			  ORDER BY created_at DESC, id DESC
			  LIMIT $2 OFFSET $3`

	rows, err := querier.QueryContext(ctx, query, subscriptionID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list webhook deliveries")
	}
	return collectPostgreSQLDeliveries(rows)
}

// Update persists the outcome of an attempt.
func (r *PostgreSQLDeliveryRepository) Update(ctx context.Context, d *domain.Delivery) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE webhook_deliveries
			  SET status = $1, response_code = $2, response_body = $3, last_error = $4,
			      attempt_count = $5, next_retry_at = $6, delivered_at = $7
			  WHERE id = $8`

	result, err := querier.ExecContext(ctx, query, d.Status, d.ResponseCode, d.ResponseBody, d.LastError,
		d.AttemptCount, d.NextRetryAt, d.DeliveredAt, d.ID)
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

func collectPostgreSQLDeliveries(rows *sql.Rows) ([]*domain.Delivery, error) {
	defer rows.Close() //nolint:errcheck

	deliveries := make([]*domain.Delivery, 0)
	for rows.Next() {
		d, err := scanPostgreSQLDelivery(rows)
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

func scanPostgreSQLDelivery(s rowScanner) (*domain.Delivery, error) {
	var d domain.Delivery
	err := s.Scan(&d.ID, &d.SubscriptionID, &d.EventID, &d.EventType, &d.Payload, &d.Endpoint, &d.Status,
		&d.ResponseCode, &d.ResponseBody, &d.LastError, &d.AttemptCount, &d.NextRetryAt, &d.CreatedAt,
		&d.DeliveredAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
