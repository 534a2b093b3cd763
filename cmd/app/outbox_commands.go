package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/orderbus/cmd/app/commands"
	"github.com/allisson/orderbus/internal/app"
	"github.com/allisson/orderbus/internal/config"
)

func getOutboxCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "clean-outbox",
			Usage: "Delete sent outbox events older than specified days",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "days",
					Aliases: []string{"d"},
					Usage:   "Delete sent events older than this many days (defaults to OUTBOX_RETENTION_DAYS)",
				},
				&cli.BoolFlag{
					Name:    "dry-run",
					Aliases: []string{"n"},
					Value:   false,
					Usage:   "Show how many events would be deleted without deleting",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				cleanupUseCase, err := container.CleanupUseCase()
				if err != nil {
					return err
				}

				days := cfg.OutboxRetentionDays
				if cmd.IsSet("days") {
					days = int(cmd.Int("days"))
				}

				return commands.RunCleanOutbox(
					ctx,
					cleanupUseCase,
					container.Logger(),
					cmd.Root().Writer,
					days,
					cmd.Bool("dry-run"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "requeue-outbox-event",
			Usage: "Move a failed outbox event back to pending",
			Flags: []cli.Flag{
				idFlag("Outbox event ID (UUID)"),
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				outboxUseCase, err := container.OutboxUseCase()
				if err != nil {
					return err
				}

				return commands.RunRequeueOutboxEvent(
					ctx,
					outboxUseCase,
					container.Logger(),
					cmd.Root().Writer,
					cmd.String("id"),
					cmd.String("format"),
				)
			},
		},
	}
}
