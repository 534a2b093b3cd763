package dto

import (
	validation "github.com/jellydator/validation"

	returnsDomain "github.com/allisson/orderbus/internal/returns/domain"
	customValidation "github.com/allisson/orderbus/internal/validation"
)

// RequestReturnRequest opens a return on a delivered order.
type RequestReturnRequest struct {
	Reason string `json:"reason"`
}

// Validate checks the reason is present and bounded.
func (r *RequestReturnRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Reason,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, returnsDomain.MaxReasonLength),
		),
	)
}

// TransitionReturnRequest moves a return to a new status.
type TransitionReturnRequest struct {
	Status string `json:"status"`
}

// Validate checks the requested status is a return status.
func (r *TransitionReturnRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Status,
			validation.Required,
			validation.By(func(value any) error {
				s, _ := value.(string)
				_, err := returnsDomain.ParseStatus(s)
				return err
			}),
		),
	)
}
