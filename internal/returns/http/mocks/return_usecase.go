// Package mocks provides mock implementations for testing HTTP handlers.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	returnsDomain "github.com/allisson/orderbus/internal/returns/domain"
)

// MockReturnUseCase is a mock implementation of ReturnUseCase for testing.
type MockReturnUseCase struct {
	mock.Mock
}

// Request mocks the Request method of ReturnUseCase.
func (m *MockReturnUseCase) Request(
	ctx context.Context,
	orderID uuid.UUID,
	reason string,
) (*returnsDomain.Return, error) {
	args := m.Called(ctx, orderID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*returnsDomain.Return), args.Error(1)
}

// Get mocks the Get method of ReturnUseCase.
func (m *MockReturnUseCase) Get(ctx context.Context, id uuid.UUID) (*returnsDomain.Return, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*returnsDomain.Return), args.Error(1)
}

// ListByOrder mocks the ListByOrder method of ReturnUseCase.
func (m *MockReturnUseCase) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*returnsDomain.Return, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*returnsDomain.Return), args.Error(1)
}

// Transition mocks the Transition method of ReturnUseCase.
func (m *MockReturnUseCase) Transition(
	ctx context.Context,
	id uuid.UUID,
	target returnsDomain.Status,
) (*returnsDomain.Return, error) {
	args := m.Called(ctx, id, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*returnsDomain.Return), args.Error(1)
}
