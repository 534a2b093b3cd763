package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/allisson/orderbus/internal/database"
	apperrors "github.com/allisson/orderbus/internal/errors"
	"github.com/allisson/orderbus/internal/webhook/domain"
)

// MySQLSubscriptionRepository stores subscriptions in MySQL. UUIDs are
// BINARY(16) and event types a JSON array.
type MySQLSubscriptionRepository struct {
	db *sql.DB
}

// NewMySQLSubscriptionRepository creates a new MySQLSubscriptionRepository.
func NewMySQLSubscriptionRepository(db *sql.DB) *MySQLSubscriptionRepository {
	return &MySQLSubscriptionRepository{db: db}
}

// Create inserts a new subscription.
func (r *MySQLSubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := sub.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal subscription id")
	}
	ownerIDBytes, err := sub.OwnerID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal owner id")
	}
	eventTypes, err := json.Marshal(sub.EventTypes)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal event types")
	}

	query := `INSERT INTO webhook_subscriptions (` + subscriptionColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(ctx, query, idBytes, ownerIDBytes, sub.Name, sub.EndpointURL, sub.Secret,
		string(eventTypes), sub.Active, sub.FailureCount, sub.LastDeliveryAt, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create webhook subscription")
	}
	return nil
}

// Get returns the subscription with the given id.
func (r *MySQLSubscriptionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	return r.getOne(ctx, `SELECT `+subscriptionColumns+` FROM webhook_subscriptions WHERE id = ?`, id)
}

// GetForUpdate returns and locks the subscription with the given id.
func (r *MySQLSubscriptionRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	return r.getOne(ctx, `SELECT `+subscriptionColumns+` FROM webhook_subscriptions WHERE id = ? FOR UPDATE`, id)
}

func (r *MySQLSubscriptionRepository) getOne(
	ctx context.Context,
	query string,
	id uuid.UUID,
) (*domain.Subscription, error) {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal subscription id")
	}

	sub, err := scanMySQLSubscription(querier.QueryRowContext(ctx, query, idBytes))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSubscriptionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get webhook subscription")
	}
	return sub, nil
}

// ListByIDsForUpdate locks the given subscriptions in id order.
func (r *MySQLSubscriptionRepository) ListByIDsForUpdate(
	ctx context.Context,
	ids []uuid.UUID,
) ([]*domain.Subscription, error) {
	if len(ids) == 0 {
		return []*domain.Subscription{}, nil
	}
	querier := database.GetTx(ctx, r.db)

	args := make([]any, 0, len(ids))
	for _, id := range ids {
		idBytes, err := id.MarshalBinary()
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to marshal subscription id")
		}
		args = append(args, idBytes)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	query := `SELECT ` + subscriptionColumns + `
			  FROM webhook_subscriptions
			  WHERE id IN (` + placeholders + `)
			  ORDER BY id
			  FOR UPDATE`

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to lock webhook subscriptions")
	}
	return collectMySQLSubscriptions(rows)
}

// ListByOwner returns an owner's subscriptions, newest first.
func (r *MySQLSubscriptionRepository) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	offset, limit int,
) ([]*domain.Subscription, error) {
	querier := database.GetTx(ctx, r.db)

	ownerIDBytes, err := ownerID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal owner id")
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM webhook_subscriptions
			  WHERE owner_id = ?
			  ORDER BY created_at DESC, id DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, ownerIDBytes, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list webhook subscriptions")
	}
	return collectMySQLSubscriptions(rows)
}

// ListDeliverable returns the owner's subscriptions that accept eventType and
// whose breaker is closed.
func (r *MySQLSubscriptionRepository) ListDeliverable(
	ctx context.Context,
	ownerID uuid.UUID,
	eventType string,
) ([]*domain.Subscription, error) {
	querier := database.GetTx(ctx, r.db)

	ownerIDBytes, err := ownerID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal owner id")
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM webhook_subscriptions
			  WHERE owner_id = ? AND JSON_CONTAINS(event_types, JSON_QUOTE(?)) AND active AND failure_count < ?
			  ORDER BY created_at ASC, id ASC`

	rows, err := querier.QueryContext(ctx, query, ownerIDBytes, eventType, domain.FailureThreshold)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list deliverable webhook subscriptions")
	}
	return collectMySQLSubscriptions(rows)
}

// Update persists the mutable subscription fields.
func (r *MySQLSubscriptionRepository) Update(ctx context.Context, sub *domain.Subscription) error {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := sub.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal subscription id")
	}
	eventTypes, err := json.Marshal(sub.EventTypes)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal event types")
	}

	query := `UPDATE webhook_subscriptions
			  SET name = ?, endpoint_url = ?, secret = ?, event_types = ?, active = ?,
			      failure_count = ?, last_delivery_at = ?, updated_at = ?
			  WHERE id = ?`

	result, err := querier.ExecContext(ctx, query, sub.Name, sub.EndpointURL, sub.Secret, string(eventTypes),
		sub.Active, sub.FailureCount, sub.LastDeliveryAt, sub.UpdatedAt, idBytes)
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

func collectMySQLSubscriptions(rows *sql.Rows) ([]*domain.Subscription, error) {
	defer rows.Close() //nolint:errcheck

	subs := make([]*domain.Subscription, 0)
	for rows.Next() {
		sub, err := scanMySQLSubscription(rows)
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

func scanMySQLSubscription(s rowScanner) (*domain.Subscription, error) {
	var sub domain.Subscription
	var idBytes, ownerIDBytes, eventTypes []byte

	err := s.Scan(&idBytes, &ownerIDBytes, &sub.Name, &sub.EndpointURL, &sub.Secret, &eventTypes,
		&sub.Active, &sub.FailureCount, &sub.LastDeliveryAt, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := sub.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, err
	}
	if err := sub.OwnerID.UnmarshalBinary(ownerIDBytes); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(eventTypes, &sub.EventTypes); err != nil {
		return nil, err
	}
	return &sub, nil
}
