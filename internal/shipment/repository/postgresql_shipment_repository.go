// Package repository provides data persistence implementations for shipments.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/orderbus/internal/database"
	apperrors "github.com/allisson/orderbus/internal/errors"
	"github.com/allisson/orderbus/internal/shipment/domain"
)

const shipmentColumns = `id, order_id, seller_id, carrier, tracking_number, status, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// PostgreSQLShipmentRepository handles shipment persistence for PostgreSQL.
type PostgreSQLShipmentRepository struct {
	db *sql.DB
}

// NewPostgreSQLShipmentRepository creates a new PostgreSQLShipmentRepository.
func NewPostgreSQLShipmentRepository(db *sql.DB) *PostgreSQLShipmentRepository {
	return &PostgreSQLShipmentRepository{db: db}
}

// Create inserts a new shipment.
func (r *PostgreSQLShipmentRepository) Create(ctx context.Context, shipment *domain.Shipment) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO shipments (` + shipmentColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := querier.ExecContext(ctx, query, shipment.ID, shipment.OrderID, shipment.SellerID, shipment.Carrier,
		shipment.TrackingNumber, shipment.Status, shipment.Version, shipment.CreatedAt, shipment.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create shipment")
	}
	return nil
}

// Get returns the shipment with the given id.
func (r *PostgreSQLShipmentRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Shipment, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE id = $1`

	shipment, err := scanPostgreSQLShipment(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrShipmentNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get shipment")
	}
	return shipment, nil
}

// Update writes the status if the version still matches and bumps shipment.Version.
func (r *PostgreSQLShipmentRepository) Update(ctx context.Context, shipment *domain.Shipment) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE shipments
			  SET status = $1, updated_at = $2, version = version + 1
			  WHERE id = $3 AND version = $4`

	result, err := querier.ExecContext(ctx, query, shipment.Status, shipment.UpdatedAt, shipment.ID,
		shipment.Version)
	if err != nil {
		return apperrors.Wrap(err, "failed to update shipment")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows count")
	}
	if affected == 0 {
		return domain.ErrShipmentVersionConflict
	}

	shipment.Version++
	return nil
}

// ListByOrder returns an order's shipments, oldest first.
func (r *PostgreSQLShipmentRepository) ListByOrder(
	ctx context.Context,
	orderID uuid.UUID,
) ([]*domain.Shipment, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + shipmentColumns + `
			  FROM shipments
			  WHERE order_id = $1
			  ORDER BY created_at ASC, id ASC`

	rows, err := querier.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list shipments")
	}
	defer rows.Close() //nolint:errcheck

	shipments := make([]*domain.Shipment, 0)
	for rows.Next() {
		shipment, err := scanPostgreSQLShipment(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan shipment")
		}
		shipments = append(shipments, shipment)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate shipments")
	}
	return shipments, nil
}

func scanPostgreSQLShipment(s rowScanner) (*domain.Shipment, error) {
	var shipment domain.Shipment
	err := s.Scan(&shipment.ID, &shipment.OrderID, &shipment.SellerID, &shipment.Carrier,
		&shipment.TrackingNumber, &shipment.Status, &shipment.Version, &shipment.CreatedAt, &shipment.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}
