// Package dto provides data transfer objects for webhook HTTP requests and responses.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/orderbus/internal/validation"
	"github.com/allisson/orderbus/internal/webhook/domain"
)

// CreateSubscriptionRequest registers a seller endpoint.
type CreateSubscriptionRequest struct {
	OwnerID     string   `json:"owner_id"`
	Name        string   `json:"name"`
	EndpointURL string   `json:"endpoint_url"`
	EventTypes  []string `json:"event_types"`
}

// Validate checks if the create subscription request is valid.
func (r *CreateSubscriptionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.OwnerID, validation.Required, customValidation.UUID),
		validation.Field(&r.Name,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, domain.MaxNameLength),
		),
		validation.Field(&r.EndpointURL, validation.Required, customValidation.HTTPURL),
		validation.Field(&r.EventTypes, validation.Required, validation.Each(customValidation.EventType)),
	)
}
