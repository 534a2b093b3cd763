// Package dto provides data transfer objects for shipment HTTP requests and responses.
package dto

import (
	"time"

	shipmentDomain "github.com/allisson/orderbus/internal/shipment/domain"
)

// ShipmentResponse represents a shipment in API responses.
type ShipmentResponse struct {
	ID             string    `json:"id"`
	OrderID        string    `json:"order_id"`
	SellerID       string    `json:"seller_id"`
	Carrier        string    `json:"carrier"`
	TrackingNumber string    `json:"tracking_number"`
	Status         string    `json:"status"`
	Version        int64     `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// MapShipmentToResponse converts a domain shipment to an API response.
func MapShipmentToResponse(s *shipmentDomain.Shipment) ShipmentResponse {
	return ShipmentResponse{
		ID:             s.ID.String(),
		OrderID:        s.OrderID.String(),
		SellerID:       s.SellerID.String(),
		Carrier:        s.Carrier,
		TrackingNumber: s.TrackingNumber,
		Status:         string(s.Status),
		Version:        s.Version,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

// ListShipmentsResponse wraps a list of shipments.
type ListShipmentsResponse struct {
	Data []ShipmentResponse `json:"data"`
}

// MapShipmentsToListResponse converts domain shipments to a list response.
func MapShipmentsToListResponse(shipments []*shipmentDomain.Shipment) ListShipmentsResponse {
	data := make([]ShipmentResponse, 0, len(shipments))
	for _, s := range shipments {
		data = append(data, MapShipmentToResponse(s))
	}
	return ListShipmentsResponse{Data: data}
}
