// Package dto provides data transfer objects for order HTTP requests and responses.
package dto

import (
	validation "github.com/jellydator/validation"

	orderDomain "github.com/allisson/orderbus/internal/order/domain"
	customValidation "github.com/allisson/orderbus/internal/validation"
)

// CreateOrderRequest contains the fields of a new order.
type CreateOrderRequest struct {
	SellerID    string `json:"seller_id"`
	CustomerID  string `json:"customer_id"`
	TotalAmount int64  `json:"total_amount"`
	Currency    string `json:"currency"`
}

// Validate checks if the create order request is valid.
func (r *CreateOrderRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.SellerID, validation.Required, customValidation.UUID),
		validation.Field(&r.CustomerID, validation.Required, customValidation.UUID),
		validation.Field(&r.TotalAmount, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.Currency, validation.Required, customValidation.CurrencyCode),
	)
}

// TransitionOrderRequest moves an order to a new status.
type TransitionOrderRequest struct {
	Status string `json:"status"`
}

// Validate checks the requested status is an order status.
func (r *TransitionOrderRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Status,
			validation.Required,
			validation.By(func(value any) error {
				s, _ := value.(string)
				_, err := orderDomain.ParseStatus(s)
				return err
			}),
		),
	)
}

// ShipOrderRequest hands an order to a carrier.
type ShipOrderRequest struct {
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"tracking_number"`
}

// Validate checks if the ship order request is valid.
func (r *ShipOrderRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Carrier, validation.Required, customValidation.NotBlank, validation.Length(1, 100)),
		validation.Field(&r.TrackingNumber, validation.Required, customValidation.NoWhitespace,
			validation.Length(1, 100)),
	)
}
