// Package repository provides persistence for webhook subscriptions and deliveries.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/allisson/orderbus/internal/database"
	apperrors "github.com/allisson/orderbus/internal/errors"
	"github.com/allisson/orderbus/internal/webhook/domain"
)

const subscriptionColumns = `id, owner_id, name, endpoint_url, secret, event_types, active, failure_count,
	last_delivery_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// PostgreSQLSubscriptionRepository stores subscriptions in PostgreSQL. Event
// types live in a TEXT[] column.
type PostgreSQLSubscriptionRepository struct {
	db *sql.DB
}

// NewPostgreSQLSubscriptionRepository creates a new PostgreSQLSubscriptionRepository.
func NewPostgreSQLSubscriptionRepository(db *sql.DB) *PostgreSQLSubscriptionRepository {
	return &PostgreSQLSubscriptionRepository{db: db}
}

// Create inserts a new subscription.
func (r *PostgreSQLSubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO webhook_subscriptions (` + subscriptionColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := querier.ExecContext(ctx, query, sub.ID, sub.OwnerID, sub.Name, sub.EndpointURL, sub.Secret,
		pq.Array(sub.EventTypes), sub.Active, sub.FailureCount, sub.LastDeliveryAt, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create webhook subscription")
	}
	return nil
}

// Get returns the subscription with the given id.
func (r *PostgreSQLSubscriptionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	return r.getOne(ctx, `SELECT `+subscriptionColumns+` FROM webhook_subscriptions WHERE id = $1`, id)
}

// GetForUpdate returns and locks the subscription with the given id.
func (r *PostgreSQLSubscriptionRepository) GetForUpdate(
	ctx context.Context,
	id uuid.UUID,
) (*domain.Subscription, error) {
	return r.getOne(ctx, `SELECT `+subscriptionColumns+` FROM webhook_subscriptions WHERE id = $1 FOR UPDATE`, id)
}

func (r *PostgreSQLSubscriptionRepository) getOne(
	ctx context.Context,
	query string,
	id uuid.UUID,
) (*domain.Subscription, error) {
	querier := database.GetTx(ctx, r.db)

	sub, err := scanPostgreSQLSubscription(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSubscriptionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get webhook subscription")
	}
	return sub, nil
}

// ListByIDsForUpdate locks the given subscriptions in id order.
func (r *PostgreSQLSubscriptionRepository) ListByIDsForUpdate(
	ctx context.Context,
	ids []uuid.UUID,
) ([]*domain.Subscription, error) {
	if len(ids) == 0 {
		return []*domain.Subscription{}, nil
	}
	querier := database.GetTx(ctx, r.db)

	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM webhook_subscriptions
			  WHERE id = ANY($1::uuid[])
			  ORDER BY id
			  FOR UPDATE`

	rows, err := querier.QueryContext(ctx, query, pq.Array(strIDs))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to lock webhook subscriptions")
	}
	return collectPostgreSQLSubscriptions(rows)
}

// ListByOwner returns an owner's subscriptions, newest first.
func (r *PostgreSQLSubscriptionRepository) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	offset, limit int,
) ([]*domain.Subscription, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + subscriptionColumns + `
			  FROM webhook_subscriptions
			  WHERE owner_id = $1
			  ORDER BY created_at DESC, id DESC
			  LIMIT $2 OFFSET $3`

	rows, err := querier.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list webhook subscriptions")
	}
	return collectPostgreSQLSubscriptions(rows)
}

// ListDeliverable returns the owner's subscriptions that accept eventType and
// whose breaker is closed.
func (r *PostgreSQLSubscriptionRepository) ListDeliverable(
	ctx context.Context,
	ownerID uuid.UUID,
	eventType string,
) ([]*domain.Subscription, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + subscriptionColumns + `
			  FROM webhook_subscriptions
			  WHERE owner_id = $1 AND $2 = ANY(event_types) AND active AND failure_count < $3
			  ORDER BY created_at ASC, id ASC`

	rows, err := querier.QueryContext(ctx, query, ownerID, eventType, domain.FailureThreshold)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list deliverable webhook subscriptions")
	}
	return collectPostgreSQLSubscriptions(rows)
}

// Update persists the mutable subscription fields.
func (r *PostgreSQLSubscriptionRepository) Update(ctx context.Context, sub *domain.Subscription) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE webhook_subscriptions
			  SET name = $1, endpoint_url = $2, secret = $3, event_types = $4, active = $5,
			      failure_count = $6, last_delivery_at = $7, updated_at = $8
			  WHERE id = $9`

	result, err := querier.ExecContext(ctx, query, sub.Name, sub.EndpointURL, sub.Secret, pq.Array(sub.EventTypes),
		sub.Active, sub.FailureCount, sub.LastDeliveryAt, sub.UpdatedAt, sub.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update webhook subscription")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows count")
	}
	if affected == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}

func collectPostgreSQLSubscriptions(rows *sql.Rows) ([]*domain.Subscription, error) {
	defer rows.Close() //nolint:errcheck

	subs := make([]*domain.Subscription, 0)
	for rows.Next() {
		sub, err := scanPostgreSQLSubscription(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan webhook subscription")
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate webhook subscriptions")
	}
	return subs, nil
}

func scanPostgreSQLSubscription(s rowScanner) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := s.Scan(&sub.ID, &sub.OwnerID, &sub.Name, &sub.EndpointURL, &sub.Secret, pq.Array(&sub.EventTypes),
		&sub.Active, &sub.FailureCount, &sub.LastDeliveryAt, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
