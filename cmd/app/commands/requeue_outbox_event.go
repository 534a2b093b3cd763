package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/allisson/orderbus/internal/outbox/domain"
	"github.com/allisson/orderbus/internal/outbox/http/dto"
)

// OutboxRequeuer moves a FAILED outbox row back to PENDING.
type OutboxRequeuer interface {
	Requeue(ctx context.Context, id uuid.UUID) (*domain.OutboxEvent, error)
}

// RunRequeueOutboxEvent requeues one FAILED outbox row with a fresh retry budget.
func RunRequeueOutboxEvent(
	ctx context.Context,
	requeuer OutboxRequeuer,
	logger *slog.Logger,
	writer io.Writer,
	rawID string,
	format string,
) error {
	id, err := parseID("id", rawID)
	if err != nil {
		return err
	}

	event, err := requeuer.Requeue(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to requeue outbox event: %w", err)
	}

	logger.Info("outbox event requeued",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.EventType),
	)

	text := fmt.Sprintf("Outbox event %s (%s) requeued, status %s", event.ID, event.EventType, event.Status)
	return writeResult(writer, format, dto.MapOutboxEventToResponse(event), text)
}
