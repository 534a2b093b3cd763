package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/orderbus/internal/errors"
	"github.com/allisson/orderbus/internal/events"
)

func newTestSubscription(t *testing.T) *Subscription {
	t.Helper()
	sub, err := NewSubscription(uuid.New(), "orders hook", "https://example.com/hooks",
		"whsec_test", []string{events.TypeOrderStatusChanged, events.TypeOrderCreated}, time.Now())
	require.NoError(t, err)
	return sub
}

func TestNewSubscription(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		sub, err := NewSubscription(uuid.New(), "  hook  ", "https://example.com/hooks", "whsec_x",
			[]string{events.TypeShipmentCreated, events.TypeOrderCreated, events.TypeShipmentCreated}, time.Now())

		require.NoError(t, err)
		assert.Equal(t, "hook", sub.Name)
		assert.True(t, sub.Active)
		assert.Zero(t, sub.FailureCount)
		assert.Equal(t, []string{events.TypeOrderCreated, events.TypeShipmentCreated}, sub.EventTypes)
	})

	created := []string{events.TypeOrderCreated}
	tests := []struct {
		name       string
		ownerID    uuid.UUID
		subName    string
		endpoint   string
		secret     string
		eventTypes []string
		errMsg     string
	}{
		{"MissingOwner", uuid.Nil, "hook", "https://example.com", "s", created, "OwnerID: must not be the nil UUID"},
		{"BlankName", uuid.New(), " ", "https://example.com", "s", created, "Name: cannot be blank"},
		{"RelativeURL", uuid.New(), "hook", "/hooks", "s", created, "EndpointURL: must be an absolute http or https URL"},
		{"FTPURL", uuid.New(), "hook", "ftp://example.com", "s", created, "EndpointURL: must be an absolute http or https URL"},
		{"NoSecret", uuid.New(), "hook", "https://example.com", "", created, "Secret: cannot be blank"},
		{"NoEventTypes", uuid.New(), "hook", "https://example.com", "s", nil, "EventTypes: cannot be blank"},
		{"UnknownEventType", uuid.New(), "hook", "https://example.com", "s", []string{"order.exploded"}, "must be a known event type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSubscription(tt.ownerID, tt.subName, tt.endpoint, tt.secret, tt.eventTypes, time.Now())
			assert.ErrorIs(t, err, ErrInvalidSubscription)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSubscription_Subscribes(t *testing.T) {
	sub := newTestSubscription(t)

	assert.True(t, sub.Subscribes(events.TypeOrderCreated))
	assert.True(t, sub.Subscribes(events.TypeOrderStatusChanged))
	assert.False(t, sub.Subscribes(events.TypeReturnRequested))
}

func TestSubscription_BreakerTripsAtThreshold(t *testing.T) {
	sub := newTestSubscription(t)
	sub.FailureCount = FailureThreshold - 1
	require.True(t, sub.CanDeliver())

	sub.RecordFailure(time.Now())

	assert.Equal(t, FailureThreshold, sub.FailureCount)
	assert.False(t, sub.Active)
	assert.False(t, sub.CanDeliver())
}

func TestSubscription_SuccessResetsFailureCount(t *testing.T) {
	sub := newTestSubscription(t)
	sub.FailureCount = 3
	now := time.Now()

	sub.RecordSuccess(now)

	assert.Zero(t, sub.FailureCount)
	require.NotNil(t, sub.LastDeliveryAt)
	assert.True(t, sub.LastDeliveryAt.Equal(now))
}

func TestSubscription_Reactivate(t *testing.T) {
	sub := newTestSubscription(t)
	for i := 0; i < FailureThreshold; i++ {
		sub.RecordFailure(time.Now())
	}
	require.False(t, sub.CanDeliver())

	sub.Reactivate(time.Now())

	assert.True(t, sub.Active)
	assert.Zero(t, sub.FailureCount)
	assert.True(t, sub.CanDeliver())
}

func TestSubscription_ActiveButOverThresholdCannotDeliver(t *testing.T) {
	sub := newTestSubscription(t)
	sub.FailureCount = FailureThreshold

	assert.False(t, sub.CanDeliver())
}

func TestSubscription_DeactivateAndRotate(t *testing.T) {
	sub := newTestSubscription(t)

	sub.Deactivate(time.Now())
	assert.False(t, sub.CanDeliver())

	sub.RotateSecret("whsec_new", time.Now())
	assert.Equal(t, "whsec_new", sub.Secret)
}
