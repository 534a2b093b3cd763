package commands

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/allisson/orderbus/internal/outbox/domain"
	outboxMocks "github.com/allisson/orderbus/internal/outbox/http/mocks"
)

func TestRunRequeueOutboxEvent(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	event := &domain.OutboxEvent{
		ID:            uuid.Must(uuid.NewV7()),
		AggregateType: "ORDER",
		AggregateID:   uuid.Must(uuid.NewV7()),
		EventType:     "order.created",
		Payload:       `{"eventType":"order.created"}`,
		Status:        domain.OutboxEventStatusPending,
		CreatedAt:     time.Now().UTC(),
	}

	t.Run("text-output", func(t *testing.T) {
		mockUseCase := &outboxMocks.MockOperatorUseCase{}
		mockUseCase.On("Requeue", ctx, event.ID).Return(event, nil)

		var out bytes.Buffer
		err := RunRequeueOutboxEvent(ctx, mockUseCase, logger, &out, event.ID.String(), "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "requeued, status PENDING")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("json-output", func(t *testing.T) {
		mockUseCase := &outboxMocks.MockOperatorUseCase{}
		mockUseCase.On("Requeue", ctx, event.ID).Return(event, nil)

		var out bytes.Buffer
		err := RunRequeueOutboxEvent(ctx, mockUseCase, logger, &out, event.ID.String(), "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), event.ID.String())
		require.Contains(t, out.String(), `"PENDING"`)
	})

	t.Run("not-failed", func(t *testing.T) {
		mockUseCase := &outboxMocks.MockOperatorUseCase{}
		mockUseCase.On("Requeue", ctx, event.ID).Return(nil, domain.ErrOutboxEventNotFailed)

		err := RunRequeueOutboxEvent(ctx, mockUseCase, logger, &bytes.Buffer{}, event.ID.String(), "text")

		require.ErrorIs(t, err, domain.ErrOutboxEventNotFailed)
	})

	t.Run("invalid-id", func(t *testing.T) {
		mockUseCase := &outboxMocks.MockOperatorUseCase{}
		err := RunRequeueOutboxEvent(ctx, mockUseCase, logger, &bytes.Buffer{}, "not-a-uuid", "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid id")
	})
}
