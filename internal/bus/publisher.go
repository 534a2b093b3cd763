package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/allisson/orderbus/internal/errors"
)

// PublisherConfig holds stream layout and write limits.
type PublisherConfig struct {
	StreamPrefix   string
	Partitions     int
	MaxLen         int64
	PublishTimeout time.Duration
}

// Publisher appends envelopes to partitioned topic streams.
type Publisher struct {
	client redis.Cmdable
	config PublisherConfig
}

// NewPublisher creates a Publisher on top of a Redis client.
func NewPublisher(client redis.Cmdable, config PublisherConfig) *Publisher {
	if config.Partitions < 1 {
		config.Partitions = 1
	}
	return &Publisher{client: client, config: config}
}

// Publish appends env to the partition of topic chosen by env.Key. The call is
// bounded by PublishTimeout when set.
func (p *Publisher) Publish(ctx context.Context, topic string, env Envelope) error {
	if p.config.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.PublishTimeout)
		defer cancel()
	}

	stream := p.StreamFor(topic, env.Key)
	args := &redis.XAddArgs{
		Stream: stream,
		Values: env.values(),
	}
	if p.config.MaxLen > 0 {
		args.MaxLen = p.config.MaxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrUnavailable, fmt.Sprintf("failed to publish to %s: %v", stream, err))
	}
	return nil
}

// StreamFor resolves the partition stream for key.
func (p *Publisher) StreamFor(topic, key string) string {
	return StreamName(p.config.StreamPrefix, topic, Partition(key, p.config.Partitions))
}

// Ping reports whether Redis is reachable.
func (p *Publisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
