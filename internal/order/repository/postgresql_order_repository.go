// Package repository provides data persistence implementations for orders.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/orderbus/internal/database"
	apperrors "github.com/allisson/orderbus/internal/errors"
	"github.com/allisson/orderbus/internal/order/domain"
)

const orderColumns = `id, seller_id, customer_id, total_amount, currency, status, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// PostgreSQLOrderRepository handles order persistence for PostgreSQL.
type PostgreSQLOrderRepository struct {
	db *sql.DB
}

// NewPostgreSQLOrderRepository creates a new PostgreSQLOrderRepository.
func NewPostgreSQLOrderRepository(db *sql.DB) *PostgreSQLOrderRepository {
	return &PostgreSQLOrderRepository{db: db}
}

// Create inserts a new order.
func (r *PostgreSQLOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO orders (` + orderColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := querier.ExecContext(ctx, query, order.ID, order.SellerID, order.CustomerID, order.TotalAmount,
		order.Currency, order.Status, order.Version, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create order")
	}
	return nil
}

// Get returns the order with the given id.
func (r *PostgreSQLOrderRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanPostgreSQLOrder(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get order")
	}
	return order, nil
}

// Update writes the order's status if its version still matches, then bumps
// order.Version. A stale version yields ErrOrderVersionConflict.
func (r *PostgreSQLOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE orders
			  SET status = $1, updated_at = $2, version = version + 1
			  WHERE id = $3 AND version = $4`

	result, err := querier.ExecContext(ctx, query, order.Status, order.UpdatedAt, order.ID, order.Version)
	if err != nil {
		return apperrors.Wrap(err, "failed to update order")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows count")
	}
	if affected == 0 {
		return domain.ErrOrderVersionConflict
	}

	order.Version++
	return nil
}

// ListBySeller returns a seller's orders, newest first.
func (r *PostgreSQLOrderRepository) ListBySeller(
	ctx context.Context,
	sellerID uuid.UUID,
	offset, limit int,
) ([]*domain.Order, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + orderColumns + `
			  FROM orders
			  WHERE seller_id = $1
			  ORDER BY created_at DESC, id DESC
			  LIMIT $2 OFFSET $3`

	rows, err := querier.QueryContext(ctx, query, sellerID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list orders")
	}
	defer rows.Close() //nolint:errcheck

	orders := make([]*domain.Order, 0)
	for rows.Next() {
		order, err := scanPostgreSQLOrder(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan order")
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate orders")
	}
	return orders, nil
}

func scanPostgreSQLOrder(s rowScanner) (*domain.Order, error) {
	var order domain.Order
	err := s.Scan(&order.ID, &order.SellerID, &order.CustomerID, &order.TotalAmount, &order.Currency,
		&order.Status, &order.Version, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &order, nil
}
