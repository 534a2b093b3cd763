package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/orderbus/internal/errors"
	"github.com/allisson/orderbus/internal/webhook/domain"
)

// Webhook request headers.
const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderEvent     = "X-Webhook-Event"
	HeaderDelivery  = "X-Webhook-Delivery"
)

// Request is one webhook call.
type Request struct {
	DeliveryID uuid.UUID
	Endpoint   string
	Secret     string
	EventType  string
	Payload    json.RawMessage
	OccurredAt time.Time
}

// Response is what came back from the endpoint.
type Response struct {
	StatusCode int
	Body       string
}

type requestBody struct {
	EventType  string          `json:"eventType"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// HTTPSender POSTs signed webhook requests.
type HTTPSender struct {
	client *http.Client
}

// NewHTTPSender creates a sender whose calls are bounded by timeout.
func NewHTTPSender(timeout time.Duration) *HTTPSender {
	return &HTTPSender{client: &http.Client{Timeout: timeout}}
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Send delivers req. Transport failures wrap ErrUnavailable and return a zero
// Response; a non-2xx answer returns the Response along with an error.
func (s *HTTPSender) Send(ctx context.Context, req Request) (Response, error) {
	body, err := json.Marshal(requestBody{
		EventType:  req.EventType,
		Payload:    req.Payload,
		OccurredAt: req.OccurredAt.UTC(),
	})
	if err != nil {
		return Response{}, fmt.Errorf("failed to encode webhook body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("failed to build webhook request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(HeaderSignature, Sign(req.Secret, body))
	httpReq.Header.Set(HeaderEvent, req.EventType)
	httpReq.Header.Set(HeaderDelivery, req.DeliveryID.String())

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return Response{}, apperrors.Wrap(apperrors.ErrUnavailable, err.Error())
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, domain.MaxResponseBodyBytes))
	result := Response{StatusCode: resp.StatusCode, Body: string(respBody)}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}
	return result, nil
}
