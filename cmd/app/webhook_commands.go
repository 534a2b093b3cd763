package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/orderbus/cmd/app/commands"
	"github.com/allisson/orderbus/internal/app"
	"github.com/allisson/orderbus/internal/config"
)

// subscriptionAction loads config, builds a container for fn and shuts it down afterwards.
func subscriptionAction(
	fn func(ctx context.Context, cmd *cli.Command, container *app.Container) error,
) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		container := app.NewContainer(config.Load())
		defer func() { _ = container.Shutdown(ctx) }()
		return fn(ctx, cmd, container)
	}
}

func getWebhookCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-webhook-subscription",
			Usage: "Register a webhook endpoint and print its signing secret",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "owner-id",
					Aliases:  []string{"o"},
					Required: true,
					Usage:    "Owner ID (UUID) whose events are delivered",
				},
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Human-readable subscription name",
				},
				&cli.StringFlag{
					Name:     "url",
					Aliases:  []string{"u"},
					Required: true,
					Usage:    "HTTPS endpoint receiving deliveries",
				},
				&cli.StringSliceFlag{
					Name:     "event-types",
					Aliases:  []string{"e"},
					Required: true,
					Usage:    "Event types to deliver (repeat or comma-separate)",
				},
				formatFlag(),
			},
			Action: subscriptionAction(func(ctx context.Context, cmd *cli.Command, container *app.Container) error {
				useCase, err := container.SubscriptionUseCase()
				if err != nil {
					return err
				}
				return commands.RunCreateWebhookSubscription(
					ctx,
					useCase,
					container.Logger(),
					cmd.Root().Writer,
					cmd.String("owner-id"),
					cmd.String("name"),
					cmd.String("url"),
					cmd.StringSlice("event-types"),
					cmd.String("format"),
				)
			}),
		},
		{
			Name:  "reactivate-webhook-subscription",
			Usage: "Re-enable a subscription disabled by the failure breaker",
			Flags: []cli.Flag{
				idFlag("Subscription ID (UUID)"),
				formatFlag(),
			},
			Action: subscriptionAction(func(ctx context.Context, cmd *cli.Command, container *app.Container) error {
				useCase, err := container.SubscriptionUseCase()
				if err != nil {
					return err
				}
				return commands.RunReactivateWebhookSubscription(
					ctx, useCase, container.Logger(), cmd.Root().Writer,
					cmd.String("id"), cmd.String("format"),
				)
			}),
		},
		{
			Name:  "rotate-webhook-secret",
			Usage: "Replace a subscription's signing secret",
			Flags: []cli.Flag{
				idFlag("Subscription ID (UUID)"),
				formatFlag(),
			},
			Action: subscriptionAction(func(ctx context.Context, cmd *cli.Command, container *app.Container) error {
				useCase, err := container.SubscriptionUseCase()
				if err != nil {
					return err
				}
				return commands.RunRotateWebhookSecret(
					ctx, useCase, container.Logger(), cmd.Root().Writer,
					cmd.String("id"), cmd.String("format"),
				)
			}),
		},
		{
			Name:  "requeue-webhook-delivery",
			Usage: "Schedule a failed webhook delivery for another attempt",
			Flags: []cli.Flag{
				idFlag("Delivery ID (UUID)"),
				formatFlag(),
			},
			Action: subscriptionAction(func(ctx context.Context, cmd *cli.Command, container *app.Container) error {
				useCase, err := container.SubscriptionUseCase()
				if err != nil {
					return err
				}
				return commands.RunRequeueWebhookDelivery(
					ctx, useCase, container.Logger(), cmd.Root().Writer,
					cmd.String("id"), cmd.String("format"),
				)
			}),
		},
	}
}
