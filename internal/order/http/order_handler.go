// Package http provides HTTP handlers for order operations.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/orderbus/internal/httputil"
	orderDomain "github.com/allisson/orderbus/internal/order/domain"
	"github.com/allisson/orderbus/internal/order/http/dto"
	orderUseCase "github.com/allisson/orderbus/internal/order/usecase"
	customValidation "github.com/allisson/orderbus/internal/validation"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	orderUseCase orderUseCase.OrderUseCase
	logger       *slog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(useCase orderUseCase.OrderUseCase, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orderUseCase: useCase,
		logger:       logger,
	}
}

// CreateHandler places a new PENDING order.
// POST /v1/orders
func (h *OrderHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	order, err := h.orderUseCase.Create(c.Request.Context(), orderUseCase.CreateOrderInput{
		SellerID:    uuid.MustParse(req.SellerID),
		CustomerID:  uuid.MustParse(req.CustomerID),
		TotalAmount: req.TotalAmount,
		Currency:    req.Currency,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapOrderToResponse(order))
}

// GetHandler returns an order.
// GET /v1/orders/:id
func (h *OrderHandler) GetHandler(c *gin.Context) {
	id, err := httputil.ParseIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	order, err := h.orderUseCase.Get(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapOrderToResponse(order))
}

// ListHandler returns a seller's orders, newest first.
// GET /v1/orders?seller_id=<uuid>&offset=0&limit=50
func (h *OrderHandler) ListHandler(c *gin.Context) {
	sellerID, err := uuid.Parse(c.Query("seller_id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid seller_id parameter: must be a valid UUID"),
			h.logger)
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	orders, err := h.orderUseCase.ListBySeller(c.Request.Context(), sellerID, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapOrdersToListResponse(orders))
}

// TransitionHandler applies a seller-driven status change.
// POST /v1/orders/:id/status
func (h *OrderHandler) TransitionHandler(c *gin.Context) {
	id, err := httputil.ParseIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.TransitionOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	order, err := h.orderUseCase.Transition(c.Request.Context(), id, orderDomain.Status(req.Status))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapOrderToResponse(order))
}

// ShipHandler hands a PREPARING order to a carrier.
// POST /v1/orders/:id/shipments
func (h *OrderHandler) ShipHandler(c *gin.Context) {
	id, err := httputil.ParseIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.ShipOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	order, shipment, err := h.orderUseCase.Ship(c.Request.Context(), id, req.Carrier, req.TrackingNumber)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapShipOrderResponse(order, shipment))
}
