package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	orderDomain "github.com/allisson/orderbus/internal/order/domain"
	outboxDomain "github.com/allisson/orderbus/internal/outbox/domain"
	shipmentDomain "github.com/allisson/orderbus/internal/shipment/domain"
)

type txMarker struct{}

// MockTxManager tags the context it hands to fn so tests can assert a call
// happened inside the transaction.
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Get(0) != nil {
		return args.Error(0)
	}
	return fn(context.WithValue(ctx, txMarker{}, true))
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txMarker{}).(bool)
	return v
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *orderDomain.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockOrderRepository) Get(ctx context.Context, id uuid.UUID) (*orderDomain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderDomain.Order), args.Error(1)
}

func (m *MockOrderRepository) Update(ctx context.Context, order *orderDomain.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockOrderRepository) ListBySeller(
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

type MockShipmentRepository struct {
	mock.Mock
}

func (m *MockShipmentRepository) Create(ctx context.Context, shipment *shipmentDomain.Shipment) error {
	return m.Called(ctx, shipment).Error(0)
}

func (m *MockShipmentRepository) Update(ctx context.Context, shipment *shipmentDomain.Shipment) error {
	return m.Called(ctx, shipment).Error(0)
}

func (m *MockShipmentRepository) ListByOrder(
	ctx context.Context,
	orderID uuid.UUID,
) ([]*shipmentDomain.Shipment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*shipmentDomain.Shipment), args.Error(1)
}

type MockEventCreator struct {
	mock.Mock
}

func (m *MockEventCreator) Create(ctx context.Context, event *outboxDomain.OutboxEvent) error {
	return m.Called(ctx, event).Error(0)
}

type MockBusinessMetrics struct {
	mock.Mock
}

func (m *MockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *MockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}
