// Package http provides HTTP handlers for webhook subscriptions and deliveries.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/orderbus/internal/httputil"
	customValidation "github.com/allisson/orderbus/internal/validation"
	"github.com/allisson/orderbus/internal/webhook/domain"
	"github.com/allisson/orderbus/internal/webhook/http/dto"
	webhookUseCase "github.com/allisson/orderbus/internal/webhook/usecase"
)

// SubscriptionHandler handles HTTP requests for webhook subscriptions and
// their deliveries.
type SubscriptionHandler struct {
	useCase webhookUseCase.SubscriptionUseCase
	logger  *slog.Logger
}

// NewSubscriptionHandler creates a new subscription handler.
func NewSubscriptionHandler(useCase webhookUseCase.SubscriptionUseCase, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		useCase: useCase,
		logger:  logger,
	}
}

// CreateHandler registers an endpoint and returns its signing secret once.
// POST /v1/webhooks/subscriptions
func (h *SubscriptionHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	sub, secret, err := h.useCase.Create(c.Request.Context(), webhookUseCase.CreateSubscriptionInput{
		OwnerID:     uuid.MustParse(req.OwnerID),
		Name:        req.Name,
		EndpointURL: req.EndpointURL,
		EventTypes:  req.EventTypes,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapSubscriptionWithSecret(sub, secret))
}

// ListHandler returns an owner's subscriptions.
// GET /v1/webhooks/subscriptions?owner_id=<uuid>&offset=0&limit=50
func (h *SubscriptionHandler) ListHandler(c *gin.Context) {
	ownerID, err := uuid.Parse(c.Query("owner_id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid owner_id parameter: must be a valid UUID"),
			h.logger)
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	subs, err := h.useCase.ListByOwner(c.Request.Context(), ownerID, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSubscriptionsToListResponse(subs))
}

// GetHandler returns a subscription.
// GET /v1/webhooks/subscriptions/:id
func (h *SubscriptionHandler) GetHandler(c *gin.Context) {
	h.respondWith(c, h.useCase.Get)
}

// ReactivateHandler clears the breaker and re-enables delivery.
// POST /v1/webhooks/subscriptions/:id/reactivate
func (h *SubscriptionHandler) ReactivateHandler(c *gin.Context) {
	h.respondWith(c, h.useCase.Reactivate)
}

// DeactivateHandler stops delivery to a subscription.
// POST /v1/webhooks/subscriptions/:id/deactivate
func (h *SubscriptionHandler) DeactivateHandler(c *gin.Context) {
	h.respondWith(c, h.useCase.Deactivate)
}

// RotateSecretHandler issues a new signing secret and returns it once.
// POST /v1/webhooks/subscriptions/:id/rotate-secret
func (h *SubscriptionHandler) RotateSecretHandler(c *gin.Context) {
	id, err := httputil.ParseIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	sub, secret, err := h.useCase.RotateSecret(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSubscriptionWithSecret(sub, secret))
}

// ListDeliveriesHandler returns a subscription's deliveries, newest first.
// GET /v1/webhooks/subscriptions/:id/deliveries?offset=0&limit=50
func (h *SubscriptionHandler) ListDeliveriesHandler(c *gin.Context) {
	id, err := httputil.ParseIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	deliveries, err := h.useCase.ListDeliveries(c.Request.Context(), id, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapDeliveriesToListResponse(deliveries))
}

// RequeueDeliveryHandler schedules a FAILED delivery for another attempt.
// POST /v1/webhooks/deliveries/:id/requeue
func (h *SubscriptionHandler) RequeueDeliveryHandler(c *gin.Context) {
	id, err := httputil.ParseIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	delivery, err := h.useCase.RequeueDelivery(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapDeliveryToResponse(delivery))
}

func (h *SubscriptionHandler) respondWith(
	c *gin.Context,
	fn func(ctx context.Context, id uuid.UUID) (*domain.Subscription, error),
) {
	id, err := httputil.ParseIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	sub, err := fn(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSubscriptionToResponse(sub))
}
