package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/orderbus/internal/metrics"
	"github.com/allisson/orderbus/internal/webhook/domain"
)

// subscriptionUseCaseWithMetrics decorates SubscriptionUseCase with metrics instrumentation.
type subscriptionUseCaseWithMetrics struct {
	next    SubscriptionUseCase
	metrics metrics.BusinessMetrics
}

// NewSubscriptionUseCaseWithMetrics wraps a SubscriptionUseCase with metrics recording.
func NewSubscriptionUseCaseWithMetrics(useCase SubscriptionUseCase, m metrics.BusinessMetrics) SubscriptionUseCase {
	return &subscriptionUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (s *subscriptionUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := metrics.StatusOf(err)
	s.metrics.RecordOperation(ctx, "webhook", operation, status)
	s.metrics.RecordDuration(ctx, "webhook", operation, time.Since(start), status)
}

func (s *subscriptionUseCaseWithMetrics) Create(
	ctx context.Context,
	input CreateSubscriptionInput,
) (*domain.Subscription, string, error) {
	start := time.Now()
	sub, secret, err := s.next.Create(ctx, input)
	s.record(ctx, "subscription_create", start, err)
	return sub, secret, err
}

func (s *subscriptionUseCaseWithMetrics) Get(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	start := time.Now()
	sub, err := s.next.Get(ctx, id)
	s.record(ctx, "subscription_get", start, err)
	return sub, err
}

func (s *subscriptionUseCaseWithMetrics) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	offset, limit int,
) ([]*domain.Subscription, error) {
	start := time.Now()
	subs, err := s.next.ListByOwner(ctx, ownerID, offset, limit)
	s.record(ctx, "subscription_list", start, err)
	return subs, err
}

func (s *subscriptionUseCaseWithMetrics) Reactivate(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	start := time.Now()
	sub, err := s.next.Reactivate(ctx, id)
	s.record(ctx, "subscription_reactivate", start, err)
	return sub, err
}

func (s *subscriptionUseCaseWithMetrics) RotateSecret(
	ctx context.Context,
	id uuid.UUID,
) (*domain.Subscription, string, error) {
	start := time.Now()
	sub, secret, err := s.next.RotateSecret(ctx, id)
	s.record(ctx, "subscription_rotate_secret", start, err)
	return sub, secret, err
}

func (s *subscriptionUseCaseWithMetrics) Deactivate(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	start := time.Now()
	sub, err := s.next.Deactivate(ctx, id)
	s.record(ctx, "subscription_deactivate", start, err)
	return sub, err
}

func (s *subscriptionUseCaseWithMetrics) ListDeliveries(
	ctx context.Context,
	subscriptionID uuid.UUID,
	offset, limit int,
) ([]*domain.Delivery, error) {
	start := time.Now()
	deliveries, err := s.next.ListDeliveries(ctx, subscriptionID, offset, limit)
	s.record(ctx, "delivery_list", start, err)
	return deliveries, err
}

func (s *subscriptionUseCaseWithMetrics) RequeueDelivery(ctx context.Context, id uuid.UUID) (*domain.Delivery, error) {
	start := time.Now()
	d, err := s.next.RequeueDelivery(ctx, id)
	s.record(ctx, "delivery_requeue", start, err)
	return d, err
}
