// Package domain defines the Shipment aggregate, its lifecycle table and errors.
package domain

import (
	"github.com/allisson/orderbus/internal/errors"
)

// Shipment error definitions.
var (
	// ErrShipmentNotFound indicates the shipment does not exist.
	ErrShipmentNotFound = errors.Wrap(errors.ErrNotFound, "shipment not found")

	// ErrShipmentVersionConflict indicates the shipment changed since it was read.
	ErrShipmentVersionConflict = errors.Wrap(errors.ErrConflict, "shipment was modified concurrently")

	// ErrInvalidShipment indicates shipment fields failed validation.
	ErrInvalidShipment = errors.Wrap(errors.ErrInvalidInput, "invalid shipment")
)
