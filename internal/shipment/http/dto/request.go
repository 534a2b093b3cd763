package dto

import (
	validation "github.com/jellydator/validation"

	shipmentDomain "github.com/allisson/orderbus/internal/shipment/domain"
)

// TransitionShipmentRequest moves a shipment to a new status.
type TransitionShipmentRequest struct {
	Status string `json:"status"`
}

// Validate checks the requested status is a shipment status.
func (r *TransitionShipmentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Status,
			validation.Required,
			validation.By(func(value any) error {
				s, _ := value.(string)
				_, err := shipmentDomain.ParseStatus(s)
				return err
			}),
		),
	)
}
