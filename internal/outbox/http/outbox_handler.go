// Package http exposes the outbox operator endpoints.
package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/orderbus/internal/httputil"
	"github.com/allisson/orderbus/internal/outbox/domain"
	"github.com/allisson/orderbus/internal/outbox/http/dto"
)

// OperatorUseCase is the part of the outbox use case the operator endpoints need.
type OperatorUseCase interface {
	Requeue(ctx context.Context, id uuid.UUID) (*domain.OutboxEvent, error)
	ListByStatus(
		ctx context.Context,
		status domain.OutboxEventStatus,
		offset, limit int,
	) ([]*domain.OutboxEvent, error)
}

// OutboxHandler handles HTTP requests for outbox rows.
type OutboxHandler struct {
	useCase OperatorUseCase
	logger  *slog.Logger
}

// NewOutboxHandler creates a new outbox handler.
func NewOutboxHandler(useCase OperatorUseCase, logger *slog.Logger) *OutboxHandler {
	return &OutboxHandler{
		useCase: useCase,
		logger:  logger,
	}
}

// ListHandler returns outbox rows with a given status, oldest first. The
// status defaults to FAILED.
// GET /v1/outbox/events?status=FAILED&offset=0&limit=50
func (h *OutboxHandler) ListHandler(c *gin.Context) {
	status, err := domain.ParseStatus(c.DefaultQuery("status", string(domain.OutboxEventStatusFailed)))
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	events, err := h.useCase.ListByStatus(c.Request.Context(), status, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapOutboxEventsToListResponse(events))
}

// RequeueHandler returns a FAILED row to PENDING.
// POST /v1/outbox/events/:id/requeue
func (h *OutboxHandler) RequeueHandler(c *gin.Context) {
	id, err := httputil.ParseIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	event, err := h.useCase.Requeue(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapOutboxEventToResponse(event))
}
