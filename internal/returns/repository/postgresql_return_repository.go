// Package repository provides data persistence implementations for returns.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/orderbus/internal/database"
	apperrors "github.com/allisson/orderbus/internal/errors"
	"github.com/allisson/orderbus/internal/returns/domain"
)

const returnColumns = `id, order_id, seller_id, reason, status, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// PostgreSQLReturnRepository handles return persistence for PostgreSQL.
type PostgreSQLReturnRepository struct {
	db *sql.DB
}

// NewPostgreSQLReturnRepository creates a new PostgreSQLReturnRepository.
func NewPostgreSQLReturnRepository(db *sql.DB) *PostgreSQLReturnRepository {
	return &PostgreSQLReturnRepository{db: db}
}

// Create inserts a new return.
func (r *PostgreSQLReturnRepository) Create(ctx context.Context, ret *domain.Return) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO returns (` + returnColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier.ExecContext(ctx, query, ret.ID, ret.OrderID, ret.SellerID, ret.Reason, ret.Status,
		ret.Version, ret.CreatedAt, ret.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create return")
	}
	return nil
}

// Get returns the return with the given id.
func (r *PostgreSQLReturnRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Return, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + returnColumns + ` FROM returns WHERE id = $1`

	ret, err := scanPostgreSQLReturn(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrReturnNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get return")
	}
	return ret, nil
}

// Update writes the status if the version still matches and bumps ret.Version.
func (r *PostgreSQLReturnRepository) Update(ctx context.Context, ret *domain.Return) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE returns
			  SET status = $1, updated_at = $2, version = version + 1
			  WHERE id = $3 AND version = $4`

	result, err := querier.ExecContext(ctx, query, ret.Status, ret.UpdatedAt, ret.ID, ret.Version)
	if err != nil {
		return apperrors.Wrap(err, "failed to update return")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows count")
	}
	if affected == 0 {
		return domain.ErrReturnVersionConflict
	}

	ret.Version++
	return nil
}

// ListByOrder returns an order's returns, oldest first.
func (r *PostgreSQLReturnRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*domain.Return, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + returnColumns + `
			  FROM returns
			  WHERE order_id = $1
			  ORDER BY created_at ASC, id ASC`

	rows, err := querier.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list returns")
	}
	defer rows.Close() //nolint:errcheck

	returns := make([]*domain.Return, 0)
	for rows.Next() {
		ret, err := scanPostgreSQLReturn(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan return")
		}
		returns = append(returns, ret)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate returns")
	}
	return returns, nil
}

func scanPostgreSQLReturn(s rowScanner) (*domain.Return, error) {
	var ret domain.Return
	err := s.Scan(&ret.ID, &ret.OrderID, &ret.SellerID, &ret.Reason, &ret.Status, &ret.Version,
		&ret.CreatedAt, &ret.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &ret, nil
}
