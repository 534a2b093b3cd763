package domain

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DeliveryStatus is the state of one event delivery to one subscription.
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "PENDING"
	DeliveryStatusDelivered DeliveryStatus = "DELIVERED"
	DeliveryStatusRetrying  DeliveryStatus = "RETRYING"
	DeliveryStatusFailed    DeliveryStatus = "FAILED"
)

// MaxAttempts is the number of attempts after which a delivery is FAILED.
const MaxAttempts = 3

// MaxResponseBodyBytes bounds the stored response body and last error.
const MaxResponseBodyBytes = 1024

// Delivery is one event queued for one subscription.
type Delivery struct {
	ID             uuid.UUID
	SubscriptionID uuid.UUID
	EventID        uuid.UUID
	EventType      string
	Payload        string
	Endpoint       string
	Status         DeliveryStatus
	ResponseCode   *int
	ResponseBody   *string
	LastError      *string
	AttemptCount   int
	NextRetryAt    *time.Time
	CreatedAt      time.Time
	DeliveredAt    *time.Time
}

// NewDelivery queues payload for sub. The delivery is due immediately.
func NewDelivery(sub *Subscription, eventID uuid.UUID, eventType, payload string, now time.Time) *Delivery {
	at := now.UTC()
	return &Delivery{
		ID:             uuid.Must(uuid.NewV7()),
		SubscriptionID: sub.ID,
		EventID:        eventID,
		EventType:      eventType,
		Payload:        payload,
		Endpoint:       sub.EndpointURL,
		Status:         DeliveryStatusPending,
		NextRetryAt:    &at,
		CreatedAt:      at,
	}
}

// NextRetryDelay is the wait after the given attempt number: 5^attempt minutes.
func NextRetryDelay(attempt int) time.Duration {
	return time.Duration(math.Pow(5, float64(attempt))) * time.Minute
}

// IsTerminal reports whether no further attempts will be made.
func (d *Delivery) IsTerminal() bool {
	return d.Status == DeliveryStatusDelivered || d.Status == DeliveryStatusFailed
}

// IsDue reports whether the delivery should be attempted at now.
func (d *Delivery) IsDue(now time.Time) bool {
	if d.IsTerminal() || d.NextRetryAt == nil {
		return false
	}
	return !d.NextRetryAt.After(now)
}

// RecordSuccess marks the delivery DELIVERED.
func (d *Delivery) RecordSuccess(code int, body string, now time.Time) {
	at := now.UTC()
	d.AttemptCount++
	d.Status = DeliveryStatusDelivered
	d.ResponseCode = &code
	d.ResponseBody = truncateBody(body)
	d.LastError = nil
	d.NextRetryAt = nil
	d.DeliveredAt = &at
}

// RecordFailure records a failed attempt. code is zero when no response was
// received. After MaxAttempts the delivery is FAILED, otherwise it is RETRYING
// with the next attempt NextRetryDelay(AttemptCount) from now.
func (d *Delivery) RecordFailure(code int, body string, cause error, now time.Time) {
	d.AttemptCount++
	d.ResponseBody = truncateBody(body)
	d.ResponseCode = nil
	if code != 0 {
		d.ResponseCode = &code
	}
	d.LastError = nil
	if cause != nil {
		if msg := storableText(cause.Error()); msg != "" {
			d.LastError = &msg
		}
	}

	if d.AttemptCount >= MaxAttempts {
		d.Status = DeliveryStatusFailed
		d.NextRetryAt = nil
		return
	}

	next := now.UTC().Add(NextRetryDelay(d.AttemptCount))
	d.Status = DeliveryStatusRetrying
	d.NextRetryAt = &next
}

// Requeue gives a FAILED delivery one more attempt, due now. AttemptCount is
// kept, so a further failure makes it FAILED again.
func (d *Delivery) Requeue(now time.Time) error {
	if d.Status != DeliveryStatusFailed {
		return ErrDeliveryNotFailed
	}
	at := now.UTC()
	d.Status = DeliveryStatusRetrying
	d.NextRetryAt = &at
	return nil
}

func truncateBody(body string) *string {
	body = storableText(body)
	if body == "" {
		return nil
	}
	return &body
}

// storableText cuts s to MaxResponseBodyBytes on a rune boundary and drops
// invalid UTF-8 and NUL bytes, which PostgreSQL and utf8mb4 text columns reject.
func storableText(s string) string {
	if len(s) > MaxResponseBodyBytes {
		cut := MaxResponseBodyBytes
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	s = strings.ToValidUTF8(s, "")
	return strings.ReplaceAll(s, "\x00", "")
}
