// Package usecase implements the outbox publisher, staging helper, operator
// controls and the retention sweep.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/orderbus/internal/bus"
	"github.com/allisson/orderbus/internal/outbox/domain"
)

// EventCreator is the part of the repository aggregate use cases need to stage events.
type EventCreator interface {
	Create(ctx context.Context, event *domain.OutboxEvent) error
}

// OutboxEventRepository defines outbox event repository operations
type OutboxEventRepository interface {
	EventCreator
	GetPendingEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.OutboxEvent, error)
	ListByStatus(
		ctx context.Context,
		status domain.OutboxEventStatus,
		offset, limit int,
	) ([]*domain.OutboxEvent, error)
	Update(ctx context.Context, event *domain.OutboxEvent) error
	ListSentOlderThan(ctx context.Context, olderThan time.Time, limit int) ([]*domain.OutboxEvent, error)
	DeleteSentOlderThan(ctx context.Context, olderThan time.Time, dryRun bool) (int64, error)
	DeleteSentByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
}

// EventPublisher hands an event to the message bus.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, env bus.Envelope) error
}

// Archiver stores swept rows before they are deleted.
type Archiver interface {
	Write(ctx context.Context, key string, records []any) error
}

// UseCase defines the interface for outbox use cases
type UseCase interface {
	Start(ctx context.Context) error
	ProcessEvents(ctx context.Context) error
	Requeue(ctx context.Context, id uuid.UUID) (*domain.OutboxEvent, error)
	ListByStatus(
		ctx context.Context,
		status domain.OutboxEventStatus,
		offset, limit int,
	) ([]*domain.OutboxEvent, error)
}

// CleanupUseCase defines the retention sweep.
type CleanupUseCase interface {
	DeleteSentOlderThan(ctx context.Context, days int, dryRun bool) (int64, error)
	StartRetention(ctx context.Context) error
}
