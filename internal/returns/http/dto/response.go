// Package dto provides data transfer objects for return HTTP handlers.
package dto

import (
	"time"

	returnsDomain "github.com/allisson/orderbus/internal/returns/domain"
)

// ReturnResponse represents a return in API responses.
type ReturnResponse struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	SellerID  string    `json:"seller_id"`
	Reason    string    `json:"reason"`
	Status    string    `json:"status"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MapReturnToResponse converts a domain return to an API response.
func MapReturnToResponse(r *returnsDomain.Return) ReturnResponse {
	return ReturnResponse{
		ID:        r.ID.String(),
		OrderID:   r.OrderID.String(),
		SellerID:  r.SellerID.String(),
		Reason:    r.Reason,
		Status:    string(r.Status),
		Version:   r.Version,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// ListReturnsResponse wraps the returns of an order.
type ListReturnsResponse struct {
	Data []ReturnResponse `json:"data"`
}

// MapReturnsToListResponse converts domain returns to a list response.
func MapReturnsToListResponse(returns []*returnsDomain.Return) ListReturnsResponse {
	data := make([]ReturnResponse, 0, len(returns))
	for _, r := range returns {
		data = append(data, MapReturnToResponse(r))
	}
	return ListReturnsResponse{Data: data}
}
