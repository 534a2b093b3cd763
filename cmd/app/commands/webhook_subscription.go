package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/allisson/orderbus/internal/webhook/http/dto"
	webhookUseCase "github.com/allisson/orderbus/internal/webhook/usecase"
)

// RunCreateWebhookSubscription registers an endpoint and prints its signing
// secret. The secret is not shown again.
func RunCreateWebhookSubscription(
	ctx context.Context,
	useCase webhookUseCase.SubscriptionUseCase,
	logger *slog.Logger,
	writer io.Writer,
	rawOwnerID, name, endpointURL string,
	eventTypes []string,
	format string,
) error {
	ownerID, err := parseID("owner-id", rawOwnerID)
	if err != nil {
		return err
	}

	sub, secret, err := useCase.Create(ctx, webhookUseCase.CreateSubscriptionInput{
		OwnerID:     ownerID,
		Name:        name,
		EndpointURL: endpointURL,
		EventTypes:  eventTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to create webhook subscription: %w", err)
	}

	logger.Info("webhook subscription created",
		slog.String("subscription_id", sub.ID.String()),
		slog.String("owner_id", sub.OwnerID.String()),
	)

	text := fmt.Sprintf(
		"Subscription created\n  ID: %s\n  Endpoint: %s\n  Events: %s\n  Secret: %s\n\nStore the secret now, it will not be shown again.",
		sub.ID, sub.EndpointURL, strings.Join(sub.EventTypes, ", "), secret,
	)
	return writeResult(writer, format, dto.MapSubscriptionWithSecret(sub, secret), text)
}

// RunReactivateWebhookSubscription re-enables a subscription and resets its
// failure count.
func RunReactivateWebhookSubscription(
	ctx context.Context,
	useCase webhookUseCase.SubscriptionUseCase,
	logger *slog.Logger,
	writer io.Writer,
	rawID string,
	format string,
) error {
	id, err := parseID("id", rawID)
	if err != nil {
		return err
	}

	sub, err := useCase.Reactivate(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to reactivate webhook subscription: %w", err)
	}

	logger.Info("webhook subscription reactivated", slog.String("subscription_id", sub.ID.String()))

	text := fmt.Sprintf("Subscription %s reactivated", sub.ID)
	return writeResult(writer, format, dto.MapSubscriptionToResponse(sub), text)
}

// RunRotateWebhookSecret replaces the signing secret and prints the new one.
func RunRotateWebhookSecret(
	ctx context.Context,
	useCase webhookUseCase.SubscriptionUseCase,
	logger *slog.Logger,
	writer io.Writer,
	rawID string,
	format string,
) error {
	id, err := parseID("id", rawID)
	if err != nil {
		return err
	}

	sub, secret, err := useCase.RotateSecret(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to rotate webhook secret: %w", err)
	}

	logger.Info("webhook secret rotated", slog.String("subscription_id", sub.ID.String()))

	text := fmt.Sprintf("Secret rotated for subscription %s\n  Secret: %s", sub.ID, secret)
	return writeResult(writer, format, dto.MapSubscriptionWithSecret(sub, secret), text)
}

// RunRequeueWebhookDelivery schedules a FAILED delivery for an immediate retry.
func RunRequeueWebhookDelivery(
	ctx context.Context,
	useCase webhookUseCase.SubscriptionUseCase,
	logger *slog.Logger,
	writer io.Writer,
	rawID string,
	format string,
) error {
	id, err := parseID("id", rawID)
	if err != nil {
		return err
	}

	delivery, err := useCase.RequeueDelivery(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to requeue webhook delivery: %w", err)
	}

	logger.Info("webhook delivery requeued",
		slog.String("delivery_id", delivery.ID.String()),
		slog.String("subscription_id", delivery.SubscriptionID.String()),
	)

	text := fmt.Sprintf("Delivery %s requeued, status %s", delivery.ID, delivery.Status)
	return writeResult(writer, format, dto.MapDeliveryToResponse(delivery), text)
}
