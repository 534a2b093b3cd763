// Package validation provides custom validation rules for the application.
package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	"github.com/allisson/orderbus/internal/events"
	apperrors "github.com/allisson/orderbus/internal/errors"
)

var currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// WrapInvalid wraps validation errors under a domain invalid-input error so
// callers can match on target.
func WrapInvalid(target, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s", target, err.Error())
}

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// CurrencyCode validates an ISO 4217 alphabetic code.
var CurrencyCode = validation.NewStringRuleWithError(
	currencyRegex.MatchString,
	validation.NewError("validation_currency_code", "must be a three-letter uppercase ISO 4217 code"),
)

// HTTPURL validates an absolute http or https URL.
var HTTPURL = validation.NewStringRuleWithError(
	func(s string) bool {
		u, err := url.Parse(s)
		return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
	},
	validation.NewError("validation_http_url", "must be an absolute http or https URL"),
)

// EventType validates a domain event type tag.
var EventType = validation.NewStringRuleWithError(
	events.IsKnownType,
	validation.NewError("validation_event_type", "must be a known event type"),
)

// UUID validates a canonical UUID string.
var UUID = validation.NewStringRuleWithError(
	func(s string) bool {
		_, err := uuid.Parse(s)
		return err == nil
	},
	validation.NewError("validation_uuid", "must be a valid UUID"),
)

// NotNilUUID rejects the zero UUID. Required cannot, since a uuid.UUID is a
// fixed-size array.
var NotNilUUID = validation.By(func(value any) error {
	if id, ok := value.(uuid.UUID); ok && id == uuid.Nil {
		return validation.NewError("validation_nil_uuid", "must not be the nil UUID")
	}
	return nil
})
