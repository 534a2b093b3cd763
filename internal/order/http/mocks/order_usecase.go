// Package mocks provides mock implementations for testing HTTP handlers.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	orderDomain "github.com/allisson/orderbus/internal/order/domain"
	orderUseCase "github.com/allisson/orderbus/internal/order/usecase"
	shipmentDomain "github.com/allisson/orderbus/internal/shipment/domain"
)

// MockOrderUseCase is a mock implementation of OrderUseCase for testing.
type MockOrderUseCase struct {
	mock.Mock
}

// Create mocks the Create method of OrderUseCase.
func (m *MockOrderUseCase) Create(
	ctx context.Context,
	input orderUseCase.CreateOrderInput,
) (*orderDomain.Order, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderDomain.Order), args.Error(1)
}

// Get mocks the Get method of OrderUseCase.
func (m *MockOrderUseCase) Get(ctx context.Context, id uuid.UUID) (*orderDomain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderDomain.Order), args.Error(1)
}

// ListBySeller mocks the ListBySeller method of OrderUseCase.
func (m *MockOrderUseCase) ListBySeller(
	ctx context.Context,
	sellerID uuid.UUID,
	offset, limit int,
) ([]*orderDomain.Order, error) {
	args := m.Called(ctx, sellerID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*orderDomain.Order), args.Error(1)
}

// Transition mocks the Transition method of OrderUseCase.
func (m *MockOrderUseCase) Transition(
	ctx context.Context,
	id uuid.UUID,
	target orderDomain.Status,
) (*orderDomain.Order, error) {
	args := m.Called(ctx, id, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderDomain.Order), args.Error(1)
}

// Ship mocks the Ship method of OrderUseCase.
func (m *MockOrderUseCase) Ship(
	ctx context.Context,
	id uuid.UUID,
	carrier, trackingNumber string,
) (*orderDomain.Order, *shipmentDomain.Shipment, error) {
	args := m.Called(ctx, id, carrier, trackingNumber)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*orderDomain.Order), args.Get(1).(*shipmentDomain.Shipment), args.Error(2)
}
