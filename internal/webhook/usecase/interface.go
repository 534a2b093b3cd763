// Package usecase implements webhook fan-out, the delivery worker and the
// subscription operator controls.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/orderbus/internal/webhook/domain"
	"github.com/allisson/orderbus/internal/webhook/service"
)

// SubscriptionRepository defines subscription persistence.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *domain.Subscription) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Subscription, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Subscription, error)
	ListByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]*domain.Subscription, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*domain.Subscription, error)
	ListDeliverable(ctx context.Context, ownerID uuid.UUID, eventType string) ([]*domain.Subscription, error)
	Update(ctx context.Context, sub *domain.Subscription) error
}

// DeliveryRepository defines delivery persistence.
type DeliveryRepository interface {
	Create(ctx context.Context, d *domain.Delivery) error
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Delivery, error)
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*domain.Delivery, error)
	ListBySubscription(ctx context.Context, subscriptionID uuid.UUID, offset, limit int) ([]*domain.Delivery, error)
	Update(ctx context.Context, d *domain.Delivery) error
}

// Sender performs one webhook call.
type Sender interface {
	Send(ctx context.Context, req service.Request) (service.Response, error)
}

// SecretCipher converts signing secrets to and from their stored form.
type SecretCipher interface {
	Encrypt(ctx context.Context, secret string) (string, error)
	Decrypt(ctx context.Context, stored string) (string, error)
}

// Guard runs fn at most once per event and consumer.
type Guard interface {
	Run(ctx context.Context, eventID, eventType, consumer string, fn func(ctx context.Context) error) (bool, error)
}

// CreateSubscriptionInput holds the fields of a new subscription.
type CreateSubscriptionInput struct {
	OwnerID     uuid.UUID
	Name        string
	EndpointURL string
	EventTypes  []string
}

// SubscriptionUseCase defines the subscription operations. Secrets are
// returned in plaintext only by Create and RotateSecret.
type SubscriptionUseCase interface {
	Create(ctx context.Context, input CreateSubscriptionInput) (*domain.Subscription, string, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Subscription, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*domain.Subscription, error)
	Reactivate(ctx context.Context, id uuid.UUID) (*domain.Subscription, error)
	RotateSecret(ctx context.Context, id uuid.UUID) (*domain.Subscription, string, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*domain.Subscription, error)
	ListDeliveries(ctx context.Context, subscriptionID uuid.UUID, offset, limit int) ([]*domain.Delivery, error)
	RequeueDelivery(ctx context.Context, id uuid.UUID) (*domain.Delivery, error)
}
