// Package http provides HTTP handlers for shipment operations.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/orderbus/internal/httputil"
	shipmentDomain "github.com/allisson/orderbus/internal/shipment/domain"
	"github.com/allisson/orderbus/internal/shipment/http/dto"
	shipmentUseCase "github.com/allisson/orderbus/internal/shipment/usecase"
	customValidation "github.com/allisson/orderbus/internal/validation"
)

// ShipmentHandler handles HTTP requests for shipments.
type ShipmentHandler struct {
	shipmentUseCase shipmentUseCase.ShipmentUseCase
	logger          *slog.Logger
}

// NewShipmentHandler creates a new shipment handler.
func NewShipmentHandler(useCase shipmentUseCase.ShipmentUseCase, logger *slog.Logger) *ShipmentHandler {
	return &ShipmentHandler{
		shipmentUseCase: useCase,
		logger:          logger,
	}
}

// GetHandler returns a shipment.
// GET /v1/shipments/:id
func (h *ShipmentHandler) GetHandler(c *gin.Context) {
	id, err := httputil.ParseIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	shipment, err := h.shipmentUseCase.Get(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapShipmentToResponse(shipment))
}

// ListByOrderHandler returns the shipments of an order, oldest first.
// GET /v1/orders/:id/shipments
func (h *ShipmentHandler) ListByOrderHandler(c *gin.Context) {
	orderID, err := httputil.ParseIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	shipments, err := h.shipmentUseCase.ListByOrder(c.Request.Context(), orderID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapShipmentsToListResponse(shipments))
}

// TransitionHandler moves a shipment to a new status, advancing its order
// when the new status implies it.
// POST /v1/shipments/:id/status
func (h *ShipmentHandler) TransitionHandler(c *gin.Context) {
	id, err := httputil.ParseIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.TransitionShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	shipment, err := h.shipmentUseCase.Transition(c.Request.Context(), id, shipmentDomain.Status(req.Status))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapShipmentToResponse(shipment))
}
