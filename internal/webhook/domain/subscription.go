// Package domain defines webhook subscriptions, their deliveries and the retry
// and circuit-breaker rules that govern them.
package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/orderbus/internal/validation"
)

// FailureThreshold is the cumulative failure count at which a subscription is
// deactivated.
const FailureThreshold = 5

// MaxNameLength bounds subscription names.
const MaxNameLength = 255

// Subscription registers a seller endpoint for a set of event types. Secret
// holds the signing secret in its stored form; see service.SecretCipher.
type Subscription struct {
	ID             uuid.UUID
	OwnerID        uuid.UUID
	Name           string
	EndpointURL    string
	Secret         string
	EventTypes     []string
	Active         bool
	FailureCount   int
	LastDeliveryAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewSubscription validates the input and returns an active subscription.
// Event types are deduplicated and sorted.
func NewSubscription(
	ownerID uuid.UUID,
	name, endpointURL, secret string,
	eventTypes []string,
	now time.Time,
) (*Subscription, error) {
	types := slices.Clone(eventTypes)
	slices.Sort(types)
	types = slices.Compact(types)

	s := &Subscription{
		ID:          uuid.Must(uuid.NewV7()),
		OwnerID:     ownerID,
		Name:        strings.TrimSpace(name),
		EndpointURL: strings.TrimSpace(endpointURL),
		Secret:      secret,
		EventTypes:  types,
		Active:      true,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the registration fields.
func (s *Subscription) Validate() error {
	err := validation.ValidateStruct(s,
		validation.Field(&s.OwnerID, customValidation.NotNilUUID),
		validation.Field(&s.Name, validation.Required, validation.Length(1, MaxNameLength)),
		validation.Field(&s.EndpointURL, validation.Required, customValidation.HTTPURL),
		validation.Field(&s.Secret, validation.Required),
		validation.Field(&s.EventTypes, validation.Required, validation.Each(customValidation.EventType)),
	)
	return customValidation.WrapInvalid(ErrInvalidSubscription, err)
}

// CanDeliver reports whether deliveries may be queued or attempted.
func (s *Subscription) CanDeliver() bool {
	return s.Active && s.FailureCount < FailureThreshold
}

// Subscribes reports whether eventType is in the subscribed set.
func (s *Subscription) Subscribes(eventType string) bool {
	_, found := slices.BinarySearch(s.EventTypes, eventType)
	return found
}

// RecordSuccess resets the failure count and stamps the last delivery time.
func (s *Subscription) RecordSuccess(now time.Time) {
	at := now.UTC()
	s.FailureCount = 0
	s.LastDeliveryAt = &at
	s.UpdatedAt = at
}

// RecordFailure bumps the cumulative failure count and deactivates the
// subscription once it reaches FailureThreshold.
func (s *Subscription) RecordFailure(now time.Time) {
	s.FailureCount++
	if s.FailureCount >= FailureThreshold {
		s.Active = false
	}
	s.UpdatedAt = now.UTC()
}

// Reactivate re-enables the subscription and clears its failure count.
func (s *Subscription) Reactivate(now time.Time) {
	s.Active = true
	s.FailureCount = 0
	s.UpdatedAt = now.UTC()
}

// Deactivate disables the subscription without touching its failure count.
func (s *Subscription) Deactivate(now time.Time) {
	s.Active = false
	s.UpdatedAt = now.UTC()
}

// RotateSecret replaces the stored signing secret.
func (s *Subscription) RotateSecret(secret string, now time.Time) {
	s.Secret = secret
	s.UpdatedAt = now.UTC()
}
