package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/allisson/orderbus/internal/bus"
	"github.com/allisson/orderbus/internal/fulfillment"
	webhookUseCase "github.com/allisson/orderbus/internal/webhook/usecase"
)

// eventTopics are the topics the outbox publishes to.
var eventTopics = []string{"orders", "shipments", "returns"}

// FulfillmentHandler returns the carrier stream handler.
func (c *Container) FulfillmentHandler() (*fulfillment.Handler, error) {
	guard, err := c.Guard()
	if err != nil {
		return nil, fmt.Errorf("failed to get idempotency guard for fulfillment handler: %w", err)
	}
	shipments, err := c.ShipmentUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get shipment use case for fulfillment handler: %w", err)
	}
	return fulfillment.NewHandler(guard, shipments, c.Logger()), nil
}

// FanoutStreams lists every partition stream of the event topics.
func (c *Container) FanoutStreams() []string {
	streams := make([]string, 0, len(eventTopics)*c.config.BusPartitions)
	for _, topic := range eventTopics {
		streams = append(streams, bus.TopicStreams(c.config.BusStreamPrefix, topic, c.config.BusPartitions)...)
	}
	return streams
}

// FulfillmentStreams lists the inbound carrier stream.
func (c *Container) FulfillmentStreams() []string {
	return []string{c.config.BusStreamPrefix + c.config.FulfillmentStream}
}

func (c *Container) newConsumer(group string, streams []string) (*bus.Consumer, error) {
	client, err := c.RedisClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get redis client for %s consumer: %w", group, err)
	}
	return bus.NewConsumer(client, bus.ConsumerConfig{
		Group:        group,
		Name:         c.config.ConsumerName,
		Streams:      streams,
		BatchSize:    c.config.ConsumerBatchSize,
		Block:        c.config.ConsumerBlock,
		ClaimMinIdle: c.config.ConsumerClaimMinIdle,
	}, c.Logger()), nil
}

// RunWorkers runs the outbox publisher, both retention sweeps, the webhook
// delivery worker and the two stream consumers until ctx is cancelled or one
// of them fails.
func (c *Container) RunWorkers(ctx context.Context) error {
	logger := c.Logger()

	// Fail fast when the bus is unreachable instead of parking every row.
	if _, err := c.BusPublisher(); err != nil {
		return err
	}

	publisher, err := c.OutboxUseCase()
	if err != nil {
		return err
	}
	cleanup, err := c.CleanupUseCase()
	if err != nil {
		return err
	}
	guard, err := c.Guard()
	if err != nil {
		return err
	}
	delivery, err := c.DeliveryUseCase()
	if err != nil {
		return err
	}
	fanout, err := c.FanoutUseCase()
	if err != nil {
		return err
	}
	carrier, err := c.FulfillmentHandler()
	if err != nil {
		return err
	}
	fanoutConsumer, err := c.newConsumer(webhookUseCase.FanoutConsumer, c.FanoutStreams())
	if err != nil {
		return err
	}
	fulfillmentConsumer, err := c.newConsumer(fulfillment.ConsumerName, c.FulfillmentStreams())
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	run := func(name string, fn func(ctx context.Context) error) {
		g.Go(func() error {
			err := fn(ctx)
			if err == nil || errors.Is(err, context.Canceled) {
				return nil
			}
			logger.Error("worker stopped", slog.String("worker", name), slog.Any("error", err))
			return fmt.Errorf("%s: %w", name, err)
		})
	}

	run("outbox-publisher", publisher.Start)
	run("outbox-retention", cleanup.StartRetention)
	run("idempotency-retention", func(ctx context.Context) error {
		return guard.StartRetention(ctx, c.config.IdempotencyRetentionDays, c.config.OutboxRetentionInterval)
	})
	run("webhook-delivery", delivery.Start)
	run("webhook-fanout", func(ctx context.Context) error {
		return fanoutConsumer.Run(ctx, fanout.Handle)
	})
	run("fulfillment", func(ctx context.Context) error {
		return fulfillmentConsumer.Run(ctx, carrier.Handle)
	})

	logger.Info("workers started", slog.String("consumer", c.config.ConsumerName))
	return g.Wait()
}
