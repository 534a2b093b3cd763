package domain

import (
	"github.com/allisson/orderbus/internal/errors"
)

// Webhook domain errors.
var (
	// ErrSubscriptionNotFound indicates the subscription does not exist or is owned by someone else.
	ErrSubscriptionNotFound = errors.Wrap(errors.ErrNotFound, "webhook subscription not found")

	// ErrInvalidSubscription indicates the subscription fields failed validation.
	ErrInvalidSubscription = errors.Wrap(errors.ErrInvalidInput, "invalid webhook subscription")

	// ErrDeliveryNotFound indicates the delivery does not exist.
	ErrDeliveryNotFound = errors.Wrap(errors.ErrNotFound, "webhook delivery not found")

	// ErrDeliveryNotFailed indicates a requeue of a delivery that is not FAILED.
	ErrDeliveryNotFailed = errors.Wrap(errors.ErrConflict, "webhook delivery is not failed")
)
