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

// MySQLShipmentRepository handles shipment persistence for MySQL. UUIDs are
// stored as BINARY(16).
type MySQLShipmentRepository struct {
	db *sql.DB
}

// NewMySQLShipmentRepository creates a new MySQLShipmentRepository.
func NewMySQLShipmentRepository(db *sql.DB) *MySQLShipmentRepository {
	return &MySQLShipmentRepository{db: db}
}

// Create inserts a new shipment.
func (r *MySQLShipmentRepository) Create(ctx context.Context, shipment *domain.Shipment) error {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := shipment.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal shipment id")
	}
	orderIDBytes, err := shipment.OrderID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal order id")
	}
	sellerIDBytes, err := shipment.SellerID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal seller id")
	}

	query := `INSERT INTO shipments (` + shipmentColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(ctx, query, idBytes, orderIDBytes, sellerIDBytes, shipment.Carrier,
		shipment.TrackingNumber, shipment.Status, shipment.Version, shipment.CreatedAt, shipment.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create shipment")
	}
	return nil
}

// Get returns the shipment with the given id.
func (r *MySQLShipmentRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Shipment, error) {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal shipment id")
	}

	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE id = ?`

	shipment, err := scanMySQLShipment(querier.QueryRowContext(ctx, query, idBytes))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrShipmentNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get shipment")
	}
	return shipment, nil
}

// Update writes the status if the version still matches and bumps shipment.Version.
func (r *MySQLShipmentRepository) Update(ctx context.Context, shipment *domain.Shipment) error {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := shipment.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal shipment id")
	}

	query := `UPDATE shipments
			  SET status = ?, updated_at = ?, version = version + 1
			  WHERE id = ? AND version = ?`

	result, err := querier.ExecContext(ctx, query, shipment.Status, shipment.UpdatedAt, idBytes, shipment.Version)
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
func (r *MySQLShipmentRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*domain.Shipment, error) {
	querier := database.GetTx(ctx, r.db)

	orderIDBytes, err := orderID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal order id")
	}

	query := `SELECT ` + shipmentColumns + `
			  FROM shipments
			  WHERE order_id = ?
			  ORDER BY created_at ASC, id ASC`

	rows, err := querier.QueryContext(ctx, query, orderIDBytes)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list shipments")
	}
	defer rows.Close() //nolint:errcheck

	shipments := make([]*domain.Shipment, 0)
	for rows.Next() {
		shipment, err := scanMySQLShipment(rows)
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

func scanMySQLShipment(s rowScanner) (*domain.Shipment, error) {
	var shipment domain.Shipment
	var idBytes, orderIDBytes, sellerIDBytes []byte

	err := s.Scan(&idBytes, &orderIDBytes, &sellerIDBytes, &shipment.Carrier, &shipment.TrackingNumber,
		&shipment.Status, &shipment.Version, &shipment.CreatedAt, &shipment.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := shipment.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, err
	}
	if err := shipment.OrderID.UnmarshalBinary(orderIDBytes); err != nil {
		return nil, err
	}
	if err := shipment.SellerID.UnmarshalBinary(sellerIDBytes); err != nil {
		return nil, err
	}
	return &shipment, nil
}
