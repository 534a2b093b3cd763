package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/orderbus/internal/metrics"
	orderDomain "github.com/allisson/orderbus/internal/order/domain"
	shipmentDomain "github.com/allisson/orderbus/internal/shipment/domain"
)

// orderUseCaseWithMetrics decorates OrderUseCase with metrics instrumentation.
type orderUseCaseWithMetrics struct {
	next    OrderUseCase
	metrics metrics.BusinessMetrics
}

// NewOrderUseCaseWithMetrics wraps an OrderUseCase with metrics recording.
func NewOrderUseCaseWithMetrics(useCase OrderUseCase, m metrics.BusinessMetrics) OrderUseCase {
	return &orderUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (o *orderUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := metrics.StatusOf(err)
	o.metrics.RecordOperation(ctx, "orders", operation, status)
	o.metrics.RecordDuration(ctx, "orders", operation, time.Since(start), status)
}

func (o *orderUseCaseWithMetrics) Create(ctx context.Context, input CreateOrderInput) (*orderDomain.Order, error) {
	start := time.Now()
	order, err := o.next.Create(ctx, input)
	o.record(ctx, "order_create", start, err)
	return order, err
}

func (o *orderUseCaseWithMetrics) Get(ctx context.Context, id uuid.UUID) (*orderDomain.Order, error) {
	start := time.Now()
	order, err := o.next.Get(ctx, id)
	o.record(ctx, "order_get", start, err)
	return order, err
}

func (o *orderUseCaseWithMetrics) ListBySeller(
	ctx context.Context,
	sellerID uuid.UUID,
	offset, limit int,
) ([]*orderDomain.Order, error) {
	start := time.Now()
	orders, err := o.next.ListBySeller(ctx, sellerID, offset, limit)
	o.record(ctx, "order_list", start, err)
	return orders, err
}

func (o *orderUseCaseWithMetrics) Transition(
	ctx context.Context,
	id uuid.UUID,
	target orderDomain.Status,
) (*orderDomain.Order, error) {
	start := time.Now()
	order, err := o.next.Transition(ctx, id, target)
	o.record(ctx, "order_transition", start, err)
	return order, err
}

func (o *orderUseCaseWithMetrics) Ship(
	ctx context.Context,
	id uuid.UUID,
	carrier, trackingNumber string,
) (*orderDomain.Order, *shipmentDomain.Shipment, error) {
	start := time.Now()
	order, shipment, err := o.next.Ship(ctx, id, carrier, trackingNumber)
	o.record(ctx, "order_ship", start, err)
	return order, shipment, err
}
