package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/orderbus/internal/errors"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func newEnvelope(key string) Envelope {
	return Envelope{
		EventID:       uuid.Must(uuid.NewV7()).String(),
		EventType:     "order.created",
		AggregateType: "ORDER",
		Key:           key,
		Value:         []byte(`{"eventType":"order.created"}`),
	}
}

func TestPartition(t *testing.T) {
	key := uuid.Must(uuid.NewV7()).String()

	first := Partition(key, 8)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Partition(key, 8))
	}
	assert.GreaterOrEqual(t, first, 0)
	assert.Less(t, first, 8)
	assert.Equal(t, 0, Partition(key, 1))
	assert.Equal(t, 0, Partition(key, 0))
}

func TestTopicStreams(t *testing.T) {
	assert.Equal(t, []string{"ob:orders:0", "ob:orders:1", "ob:orders:2"}, TopicStreams("ob:", "orders", 3))
	assert.Equal(t, []string{"orders:0"}, TopicStreams("", "orders", 0))
}

func TestMessage_Envelope(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		msg := Message{Fields: map[string]string{
			FieldEventID:   "e1",
			FieldEventType: "order.created",
			FieldKey:       "k",
			FieldValue:     "{}",
		}}
		env, err := msg.Envelope()
		require.NoError(t, err)
		assert.Equal(t, "e1", env.EventID)
		assert.Equal(t, []byte("{}"), env.Value)
	})

	t.Run("Error_MissingFields", func(t *testing.T) {
		msg := Message{Stream: "s", ID: "1-0", Fields: map[string]string{"shipment_id": "x"}}
		_, err := msg.Envelope()
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestPublisher_Publish(t *testing.T) {
	client := newTestRedis(t)
	pub := NewPublisher(client, PublisherConfig{StreamPrefix: "ob:", Partitions: 4, MaxLen: 1000})
	ctx := context.Background()

	aggregateID := uuid.Must(uuid.NewV7()).String()
	first := newEnvelope(aggregateID)
	second := newEnvelope(aggregateID)

	require.NoError(t, pub.Publish(ctx, "orders", first))
	require.NoError(t, pub.Publish(ctx, "orders", second))

	stream := pub.StreamFor("orders", aggregateID)
	entries, err := client.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Same key, same partition, publish order kept.
	assert.Equal(t, first.EventID, entries[0].Values[FieldEventID])
	assert.Equal(t, second.EventID, entries[1].Values[FieldEventID])
	assert.Equal(t, aggregateID, entries[0].Values[FieldKey])
	assert.Equal(t, "ORDER", entries[0].Values[FieldAggregateType])
}

func TestPublisher_Publish_Unavailable(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	srv.Close()

	pub := NewPublisher(client, PublisherConfig{Partitions: 1, PublishTimeout: 200 * time.Millisecond})
	err := pub.Publish(context.Background(), "orders", newEnvelope("k"))
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
}

func TestConsumer_Poll(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()
	pub := NewPublisher(client, PublisherConfig{StreamPrefix: "ob:", Partitions: 2})
	consumer := NewConsumer(client, ConsumerConfig{
		Group:   "fanout",
		Name:    "worker-1",
		Streams: TopicStreams("ob:", "orders", 2),
		Block:   -1,
	}, nil)
	require.NoError(t, consumer.EnsureGroups(ctx))
	// Creating the groups twice is fine.
	require.NoError(t, consumer.EnsureGroups(ctx))

	envs := []Envelope{newEnvelope("a"), newEnvelope("b"), newEnvelope("c")}
	for _, env := range envs {
		require.NoError(t, pub.Publish(ctx, "orders", env))
	}

	var got []string
	n, err := consumer.Poll(ctx, func(ctx context.Context, msg Message) error {
		env, err := msg.Envelope()
		require.NoError(t, err)
		got = append(got, env.EventID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.ElementsMatch(t, []string{envs[0].EventID, envs[1].EventID, envs[2].EventID}, got)

	for _, stream := range TopicStreams("ob:", "orders", 2) {
		pending, err := client.XPending(ctx, stream, "fanout").Result()
		require.NoError(t, err)
		assert.Zero(t, pending.Count, "stream %s", stream)
	}

	n, err = consumer.Poll(ctx, func(ctx context.Context, msg Message) error { return nil })
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestConsumer_Poll_FailedMessageIsRedelivered(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()
	pub := NewPublisher(client, PublisherConfig{Partitions: 1})
	consumer := NewConsumer(client, ConsumerConfig{
		Group:        "fanout",
		Name:         "worker-1",
		Streams:      TopicStreams("", "orders", 1),
		Block:        -1,
		ClaimMinIdle: 10 * time.Millisecond,
	}, nil)
	require.NoError(t, consumer.EnsureGroups(ctx))

	env := newEnvelope("a")
	require.NoError(t, pub.Publish(ctx, "orders", env))

	var mu sync.Mutex
	attempts := 0
	handler := func(ctx context.Context, msg Message) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts == 1 {
			return errors.New("database unavailable")
		}
		return nil
	}

	n, err := consumer.Poll(ctx, handler)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending, err := client.XPending(ctx, "orders:0", "fanout").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.Count)

	time.Sleep(50 * time.Millisecond)

	n, err = consumer.Poll(ctx, handler)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, attempts)

	pending, err = client.XPending(ctx, "orders:0", "fanout").Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

func TestConsumer_Run_StopsOnCancel(t *testing.T) {
	client := newTestRedis(t)
	consumer := NewConsumer(client, ConsumerConfig{
		Group:   "fanout",
		Name:    "worker-1",
		Streams: []string{"orders:0"},
		Block:   -1,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- consumer.Run(ctx, func(ctx context.Context, msg Message) error { return nil })
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}
