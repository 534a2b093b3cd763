// Package http provides HTTP handlers for return operations.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/orderbus/internal/httputil"
	returnsDomain "github.com/allisson/orderbus/internal/returns/domain"
	"github.com/allisson/orderbus/internal/returns/http/dto"
	returnsUseCase "github.com/allisson/orderbus/internal/returns/usecase"
	customValidation "github.com/allisson/orderbus/internal/validation"
)

// ReturnHandler handles HTTP requests for returns.
type ReturnHandler struct {
	returnUseCase returnsUseCase.ReturnUseCase
	logger        *slog.Logger
}

// NewReturnHandler creates a new return handler.
func NewReturnHandler(useCase returnsUseCase.ReturnUseCase, logger *slog.Logger) *ReturnHandler {
	return &ReturnHandler{
		returnUseCase: useCase,
		logger:        logger,
	}
}

// RequestHandler opens a return for a delivered order.
// POST /v1/orders/:id/returns
func (h *ReturnHandler) RequestHandler(c *gin.Context) {
	orderID, err := httputil.ParseIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.RequestReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	ret, err := h.returnUseCase.Request(c.Request.Context(), orderID, req.Reason)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapReturnToResponse(ret))
}

// ListByOrderHandler returns every return of an order.
// GET /v1/orders/:id/returns
func (h *ReturnHandler) ListByOrderHandler(c *gin.Context) {
	orderID, err := httputil.ParseIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	returns, err := h.returnUseCase.ListByOrder(c.Request.Context(), orderID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapReturnsToListResponse(returns))
}

// GetHandler returns a single return.
// GET /v1/returns/:id
func (h *ReturnHandler) GetHandler(c *gin.Context) {
	id, err := httputil.ParseIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	ret, err := h.returnUseCase.Get(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapReturnToResponse(ret))
}

// TransitionHandler moves a return through its lifecycle.
// POST /v1/returns/:id/status
func (h *ReturnHandler) TransitionHandler(c *gin.Context) {
	id, err := httputil.ParseIDParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.TransitionReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	ret, err := h.returnUseCase.Transition(c.Request.Context(), id, returnsDomain.Status(req.Status))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapReturnToResponse(ret))
}
