package dto

import (
	"time"

	orderDomain "github.com/allisson/orderbus/internal/order/domain"
	shipmentDomain "github.com/allisson/orderbus/internal/shipment/domain"
	shipmentDTO "github.com/allisson/orderbus/internal/shipment/http/dto"
)

// OrderResponse represents an order in API responses.
type OrderResponse struct {
	ID          string    `json:"id"`
	SellerID    string    `json:"seller_id"`
	CustomerID  string    `json:"customer_id"`
	TotalAmount int64     `json:"total_amount"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MapOrderToResponse converts a domain order to an API response.
func MapOrderToResponse(o *orderDomain.Order) OrderResponse {
	return OrderResponse{
		ID:          o.ID.String(),
		SellerID:    o.SellerID.String(),
		CustomerID:  o.CustomerID.String(),
		TotalAmount: o.TotalAmount,
		Currency:    o.Currency,
		Status:      string(o.Status),
		Version:     o.Version,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

// ListOrdersResponse wraps a page of orders.
type ListOrdersResponse struct {
	Data []OrderResponse `json:"data"`
}

// MapOrdersToListResponse converts domain orders to a list response.
func MapOrdersToListResponse(orders []*orderDomain.Order) ListOrdersResponse {
	data := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		data = append(data, MapOrderToResponse(o))
	}
	return ListOrdersResponse{Data: data}
}

// ShipOrderResponse is the shipped order and its new shipment.
type ShipOrderResponse struct {
	Order    OrderResponse                `json:"order"`
	Shipment shipmentDTO.ShipmentResponse `json:"shipment"`
}

// MapShipOrderResponse converts the result of shipping an order.
func MapShipOrderResponse(o *orderDomain.Order, s *shipmentDomain.Shipment) ShipOrderResponse {
	return ShipOrderResponse{
		Order:    MapOrderToResponse(o),
		Shipment: shipmentDTO.MapShipmentToResponse(s),
	}
}
