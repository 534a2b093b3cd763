// Package mocks provides mock implementations for testing HTTP handlers.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	shipmentDomain "github.com/allisson/orderbus/internal/shipment/domain"
)

// MockShipmentUseCase is a mock implementation of ShipmentUseCase for testing.
type MockShipmentUseCase struct {
	mock.Mock
}

// Get mocks the Get method of ShipmentUseCase.
func (m *MockShipmentUseCase) Get(ctx context.Context, id uuid.UUID) (*shipmentDomain.Shipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipmentDomain.Shipment), args.Error(1)
}

// ListByOrder mocks the ListByOrder method of ShipmentUseCase.
func (m *MockShipmentUseCase) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*shipmentDomain.Shipment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*shipmentDomain.Shipment), args.Error(1)
}

// Transition mocks the Transition method of ShipmentUseCase.
func (m *MockShipmentUseCase) Transition(
	ctx context.Context,
	id uuid.UUID,
	target shipmentDomain.Status,
) (*shipmentDomain.Shipment, error) {
	args := m.Called(ctx, id, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipmentDomain.Shipment), args.Error(1)
}

// ApplyCarrierUpdate mocks the ApplyCarrierUpdate method of ShipmentUseCase.
func (m *MockShipmentUseCase) ApplyCarrierUpdate(
	ctx context.Context,
	id uuid.UUID,
	target shipmentDomain.Status,
) (*shipmentDomain.Shipment, bool, error) {
	args := m.Called(ctx, id, target)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*shipmentDomain.Shipment), args.Bool(1), args.Error(2)
}
