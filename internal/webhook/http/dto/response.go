package dto

import (
	"time"

	"github.com/allisson/orderbus/internal/webhook/domain"
)

// SubscriptionResponse represents a subscription in API responses. The stored
// secret is never exposed; Secret is set only when a plaintext secret was just
// issued.
type SubscriptionResponse struct {
	ID             string     `json:"id"`
	OwnerID        string     `json:"owner_id"`
	Name           string     `json:"name"`
	EndpointURL    string     `json:"endpoint_url"`
	EventTypes     []string   `json:"event_types"`
	Active         bool       `json:"active"`
	FailureCount   int        `json:"failure_count"`
	LastDeliveryAt *time.Time `json:"last_delivery_at,omitempty"`
	Secret         string     `json:"secret,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// MapSubscriptionToResponse converts a domain subscription to an API response.
func MapSubscriptionToResponse(s *domain.Subscription) SubscriptionResponse {
	eventTypes := s.EventTypes
	if eventTypes == nil {
		eventTypes = []string{}
	}
	return SubscriptionResponse{
		ID:             s.ID.String(),
		OwnerID:        s.OwnerID.String(),
		Name:           s.Name,
		EndpointURL:    s.EndpointURL,
		EventTypes:     eventTypes,
		Active:         s.Active,
		FailureCount:   s.FailureCount,
		LastDeliveryAt: s.LastDeliveryAt,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

// MapSubscriptionWithSecret converts a subscription and attaches its freshly
// issued plaintext secret.
func MapSubscriptionWithSecret(s *domain.Subscription, secret string) SubscriptionResponse {
	resp := MapSubscriptionToResponse(s)
	resp.Secret = secret
	return resp
}

// ListSubscriptionsResponse wraps a page of subscriptions.
type ListSubscriptionsResponse struct {
	Data []SubscriptionResponse `json:"data"`
}

// MapSubscriptionsToListResponse converts domain subscriptions to a list response.
func MapSubscriptionsToListResponse(subs []*domain.Subscription) ListSubscriptionsResponse {
	data := make([]SubscriptionResponse, 0, len(subs))
	for _, s := range subs {
		data = append(data, MapSubscriptionToResponse(s))
	}
	return ListSubscriptionsResponse{Data: data}
}

// DeliveryResponse represents a delivery in API responses.
type DeliveryResponse struct {
	ID             string     `json:"id"`
	SubscriptionID string     `json:"subscription_id"`
	EventID        string     `json:"event_id"`
	EventType      string     `json:"event_type"`
	Endpoint       string     `json:"endpoint"`
	Status         string     `json:"status"`
	ResponseCode   *int       `json:"response_code,omitempty"`
	ResponseBody   *string    `json:"response_body,omitempty"`
	LastError      *string    `json:"last_error,omitempty"`
	AttemptCount   int        `json:"attempt_count"`
	NextRetryAt    *time.Time `json:"next_retry_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
}

// MapDeliveryToResponse converts a domain delivery to an API response.
func MapDeliveryToResponse(d *domain.Delivery) DeliveryResponse {
	return DeliveryResponse{
		ID:             d.ID.String(),
		SubscriptionID: d.SubscriptionID.String(),
		EventID:        d.EventID.String(),
		EventType:      d.EventType,
		Endpoint:       d.Endpoint,
		Status:         string(d.Status),
		ResponseCode:   d.ResponseCode,
		ResponseBody:   d.ResponseBody,
		LastError:      d.LastError,
		AttemptCount:   d.AttemptCount,
		NextRetryAt:    d.NextRetryAt,
		CreatedAt:      d.CreatedAt,
		DeliveredAt:    d.DeliveredAt,
	}
}

// ListDeliveriesResponse wraps a page of deliveries.
type ListDeliveriesResponse struct {
	Data []DeliveryResponse `json:"data"`
}

// MapDeliveriesToListResponse converts domain deliveries to a list response.
func MapDeliveriesToListResponse(deliveries []*domain.Delivery) ListDeliveriesResponse {
	data := make([]DeliveryResponse, 0, len(deliveries))
	for _, d := range deliveries {
		data = append(data, MapDeliveryToResponse(d))
	}
	return ListDeliveriesResponse{Data: data}
}
