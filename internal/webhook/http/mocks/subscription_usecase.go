// Package mocks provides mock implementations for testing HTTP handlers.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/orderbus/internal/webhook/domain"
	webhookUseCase "github.com/allisson/orderbus/internal/webhook/usecase"
)

// MockSubscriptionUseCase is a mock implementation of SubscriptionUseCase for testing.
type MockSubscriptionUseCase struct {
	mock.Mock
}

func (m *MockSubscriptionUseCase) subscription(args mock.Arguments) (*domain.Subscription, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscription), args.Error(1)
}

// Create mocks the Create method of SubscriptionUseCase.
func (m *MockSubscriptionUseCase) Create(
	ctx context.Context,
	input webhookUseCase.CreateSubscriptionInput,
) (*domain.Subscription, string, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*domain.Subscription), args.String(1), args.Error(2)
}

// Get mocks the Get method of SubscriptionUseCase.
func (m *MockSubscriptionUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	return m.subscription(m.Called(ctx, id))
}

// ListByOwner mocks the ListByOwner method of SubscriptionUseCase.
func (m *MockSubscriptionUseCase) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	offset, limit int,
) ([]*domain.Subscription, error) {
	args := m.Called(ctx, ownerID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Subscription), args.Error(1)
}

// Reactivate mocks the Reactivate method of SubscriptionUseCase.
func (m *MockSubscriptionUseCase) Reactivate(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	return m.subscription(m.Called(ctx, id))
}

// RotateSecret mocks the RotateSecret method of SubscriptionUseCase.
func (m *MockSubscriptionUseCase) RotateSecret(
	ctx context.Context,
	id uuid.UUID,
) (*domain.Subscription, string, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*domain.Subscription), args.String(1), args.Error(2)
}

// Deactivate mocks the Deactivate method of SubscriptionUseCase.
func (m *MockSubscriptionUseCase) Deactivate(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	return m.subscription(m.Called(ctx, id))
}

// ListDeliveries mocks the ListDeliveries method of SubscriptionUseCase.
func (m *MockSubscriptionUseCase) ListDeliveries(
	ctx context.Context,
	subscriptionID uuid.UUID,
	offset, limit int,
) ([]*domain.Delivery, error) {
	args := m.Called(ctx, subscriptionID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Delivery), args.Error(1)
}

// RequeueDelivery mocks the RequeueDelivery method of SubscriptionUseCase.
func (m *MockSubscriptionUseCase) RequeueDelivery(ctx context.Context, id uuid.UUID) (*domain.Delivery, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Delivery), args.Error(1)
}
