// Package mocks provides mock implementations for testing HTTP handlers.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/orderbus/internal/outbox/domain"
)

// MockOperatorUseCase is a mock implementation of OperatorUseCase for testing.
type MockOperatorUseCase struct {
	mock.Mock
}

// Requeue mocks the Requeue method of OperatorUseCase.
func (m *MockOperatorUseCase) Requeue(ctx context.Context, id uuid.UUID) (*domain.OutboxEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OutboxEvent), args.Error(1)
}

// ListByStatus mocks the ListByStatus method of OperatorUseCase.
func (m *MockOperatorUseCase) ListByStatus(
	ctx context.Context,
	status domain.OutboxEventStatus,
	offset, limit int,
) ([]*domain.OutboxEvent, error) {
	args := m.Called(ctx, status, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.OutboxEvent), args.Error(1)
}
