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

// MySQLOrderRepository handles order persistence for MySQL. UUIDs are stored
// as BINARY(16).
type MySQLOrderRepository struct {
	db *sql.DB
}

// NewMySQLOrderRepository creates a new MySQLOrderRepository.
func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db}
}

// Create inserts a new order.
func (r *MySQLOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := order.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal order id")
	}
	sellerIDBytes, err := order.SellerID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal seller id")
	}
	customerIDBytes, err := order.CustomerID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal customer id")
	}

	query := `INSERT INTO orders (` + orderColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(ctx, query, idBytes, sellerIDBytes, customerIDBytes, order.TotalAmount,
		order.Currency, order.Status, order.Version, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create order")
	}
	return nil
}

// Get returns the order with the given id.
func (r *MySQLOrderRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal order id")
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`

	order, err := scanMySQLOrder(querier.QueryRowContext(ctx, query, idBytes))
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
func (r *MySQLOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := order.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal order id")
	}

	query := `UPDATE orders
			  SET status = ?, updated_at = ?, version = version + 1
			  WHERE id = ? AND version = ?`

	result, err := querier.ExecContext(ctx, query, order.Status, order.UpdatedAt, idBytes, order.Version)
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
func (r *MySQLOrderRepository) ListBySeller(
	ctx context.Context,
	sellerID uuid.UUID,
	offset, limit int,
) ([]*domain.Order, error) {
	querier := database.GetTx(ctx, r.db)

	sellerIDBytes, err := sellerID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal seller id")
	}

	query := `SELECT ` + orderColumns + `
			  FROM orders
			  WHERE seller_id = ?
			  ORDER BY created_at DESC, id DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, sellerIDBytes, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list orders")
	}
	defer rows.Close() //nolint:errcheck

	orders := make([]*domain.Order, 0)
	for rows.Next() {
		order, err := scanMySQLOrder(rows)
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

func scanMySQLOrder(s rowScanner) (*domain.Order, error) {
	var order domain.Order
	var idBytes, sellerIDBytes, customerIDBytes []byte

	err := s.Scan(&idBytes, &sellerIDBytes, &customerIDBytes, &order.TotalAmount, &order.Currency,
		&order.Status, &order.Version, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := order.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, err
	}
	if err := order.SellerID.UnmarshalBinary(sellerIDBytes); err != nil {
		return nil, err
	}
	if err := order.CustomerID.UnmarshalBinary(customerIDBytes); err != nil {
		return nil, err
	}
	return &order, nil
}
