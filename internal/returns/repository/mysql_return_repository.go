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

// MySQLReturnRepository handles return persistence for MySQL. UUIDs are stored
// as BINARY(16).
type MySQLReturnRepository struct {
	db *sql.DB
}

// NewMySQLReturnRepository creates a new MySQLReturnRepository.
func NewMySQLReturnRepository(db *sql.DB) *MySQLReturnRepository {
	return &MySQLReturnRepository{db: db}
}

// Create inserts a new return.
func (r *MySQLReturnRepository) Create(ctx context.Context, ret *domain.Return) error {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := ret.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal return id")
	}
	orderIDBytes, err := ret.OrderID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal order id")
	}
	sellerIDBytes, err := ret.SellerID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal seller id")
	}

	query := `INSERT INTO returns (` + returnColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(ctx, query, idBytes, orderIDBytes, sellerIDBytes, ret.Reason, ret.Status,
		ret.Version, ret.CreatedAt, ret.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create return")
	}
	return nil
}

// Get returns the return with the given id.
func (r *MySQLReturnRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Return, error) {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal return id")
	}

	query := `SELECT ` + returnColumns + ` FROM returns WHERE id = ?`

	ret, err := scanMySQLReturn(querier.QueryRowContext(ctx, query, idBytes))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrReturnNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get return")
	}
	return ret, nil
}

// Update writes the status if the version still matches and bumps ret.Version.
func (r *MySQLReturnRepository) Update(ctx context.Context, ret *domain.Return) error {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := ret.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal return id")
	}

	query := `UPDATE returns
			  SET status = ?, updated_at = ?, version = version + 1
			  WHERE id = ? AND version = ?`

	result, err := querier.ExecContext(ctx, query, ret.Status, ret.UpdatedAt, idBytes, ret.Version)
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
func (r *MySQLReturnRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*domain.Return, error) {
	querier := database.GetTx(ctx, r.db)

	orderIDBytes, err := orderID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal order id")
	}

	query := `SELECT ` + returnColumns + `
			  FROM returns
			  WHERE order_id = ?
			  ORDER BY created_at ASC, id ASC`

	rows, err := querier.QueryContext(ctx, query, orderIDBytes)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list returns")
	}
	defer rows.Close() //nolint:errcheck

	returns := make([]*domain.Return, 0)
	for rows.Next() {
		ret, err := scanMySQLReturn(rows)
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

func scanMySQLReturn(s rowScanner) (*domain.Return, error) {
	var ret domain.Return
	var idBytes, orderIDBytes, sellerIDBytes []byte

	err := s.Scan(&idBytes, &orderIDBytes, &sellerIDBytes, &ret.Reason, &ret.Status, &ret.Version,
		&ret.CreatedAt, &ret.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := ret.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, err
	}
	if err := ret.OrderID.UnmarshalBinary(orderIDBytes); err != nil {
		return nil, err
	}
	if err := ret.SellerID.UnmarshalBinary(sellerIDBytes); err != nil {
		return nil, err
	}
	return &ret, nil
}
