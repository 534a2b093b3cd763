package bus

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Handler processes one message. Returning nil acknowledges it; an error leaves
// it pending so it is redelivered once the claim idle time passes.
type Handler func(ctx context.Context, msg Message) error

// ConsumerConfig configures a consumer-group reader.
type ConsumerConfig struct {
	Group     string
	Name      string
	Streams   []string
	BatchSize int64
	// Block is how long XREADGROUP waits for new entries; negative disables blocking.
	Block time.Duration
	// ClaimMinIdle is the idle time after which another consumer's pending
	// entries are reclaimed. Zero disables reclaiming.
	ClaimMinIdle time.Duration
}

// Consumer reads a set of streams as a member of a consumer group.
type Consumer struct {
	client redis.Cmdable
	config ConsumerConfig
	logger *slog.Logger
}

// NewConsumer creates a Consumer. Groups are created on the first Poll.
func NewConsumer(client redis.Cmdable, config ConsumerConfig, logger *slog.Logger) *Consumer {
	if config.BatchSize <= 0 {
		config.BatchSize = 10
	}
	return &Consumer{client: client, config: config, logger: logger}
}

// EnsureGroups creates the consumer group on every stream, creating empty
// streams as needed. Existing groups are left alone.
func (c *Consumer) EnsureGroups(ctx context.Context) error {
	for _, stream := range c.config.Streams {
		err := c.client.XGroupCreateMkStream(ctx, stream, c.config.Group, "0").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			return err
		}
	}
	return nil
}

// Run polls until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	if err := c.EnsureGroups(ctx); err != nil {
		return err
	}

	if c.logger != nil {
		c.logger.Info("starting stream consumer",
			slog.String("group", c.config.Group),
			slog.String("consumer", c.config.Name),
			slog.Int("streams", len(c.config.Streams)),
		)
	}

	for {
		if ctx.Err() != nil {
			if c.logger != nil {
				c.logger.Info("stopping stream consumer", slog.String("group", c.config.Group))
			}
			return ctx.Err()
		}

		n, err := c.Poll(ctx, handler)
		if err != nil && ctx.Err() == nil {
			if c.logger != nil {
				c.logger.Error("failed to poll streams",
					slog.String("group", c.config.Group),
					slog.Any("error", err),
				)
			}
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		if n == 0 && c.config.Block < 0 {
			select {
			case <-ctx.Done():
			case <-time.After(100 * time.Millisecond):
			}
		}
	}
}

// Poll reclaims stale pending entries, then reads one batch of new entries,
// and hands each to handler. It returns the number of messages handled.
func (c *Consumer) Poll(ctx context.Context, handler Handler) (int, error) {
	handled := 0

	if c.config.ClaimMinIdle > 0 {
		for _, stream := range c.config.Streams {
			msgs, _, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
				Stream:   stream,
				Group:    c.config.Group,
				Consumer: c.config.Name,
				MinIdle:  c.config.ClaimMinIdle,
				Start:    "0-0",
				Count:    c.config.BatchSize,
			}).Result()
			if err != nil {
				return handled, err
			}
			for _, x := range msgs {
				c.dispatch(ctx, handler, newMessage(stream, x))
				handled++
			}
		}
	}

	streams := make([]string, 0, len(c.config.Streams)*2)
	streams = append(streams, c.config.Streams...)
	for range c.config.Streams {
		streams = append(streams, ">")
	}

	res, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.config.Group,
		Consumer: c.config.Name,
		Streams:  streams,
		Count:    c.config.BatchSize,
		Block:    c.config.Block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return handled, nil
		}
		return handled, err
	}

	for _, s := range res {
		for _, x := range s.Messages {
			c.dispatch(ctx, handler, newMessage(s.Stream, x))
			handled++
		}
	}
	return handled, nil
}

func (c *Consumer) dispatch(ctx context.Context, handler Handler, msg Message) {
	if err := handler(ctx, msg); err != nil {
		if c.logger != nil {
			c.logger.Warn("message left pending for redelivery",
				slog.String("stream", msg.Stream),
				slog.String("message_id", msg.ID),
				slog.Any("error", err),
			)
		}
		return
	}

	if err := c.client.XAck(ctx, msg.Stream, c.config.Group, msg.ID).Err(); err != nil && c.logger != nil {
		c.logger.Error("failed to ack message",
			slog.String("stream", msg.Stream),
			slog.String("message_id", msg.ID),
			slog.Any("error", err),
		)
	}
}
