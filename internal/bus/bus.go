// Package bus carries outbox events and inbound carrier updates over Redis
// Streams. A topic is split into a fixed number of partition streams and a key
// always lands on the same partition, so per-aggregate order is preserved.
package bus

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/allisson/orderbus/internal/errors"
)

// Stream entry field names written by the publisher.
const (
	FieldEventID       = "event_id"
	FieldEventType     = "event_type"
	FieldAggregateType = "aggregate_type"
	FieldKey           = "key"
	FieldValue         = "value"
)

// Envelope is an outbox event as it travels on the bus.
type Envelope struct {
	EventID       string
	EventType     string
	AggregateType string
	Key           string
	Value         []byte
}

func (e Envelope) values() map[string]any {
	return map[string]any{
		FieldEventID:       e.EventID,
		FieldEventType:     e.EventType,
		FieldAggregateType: e.AggregateType,
		FieldKey:           e.Key,
		FieldValue:         string(e.Value),
	}
}

// Message is one stream entry delivered to a Handler.
type Message struct {
	Stream string
	ID     string
	Fields map[string]string
}

// Get returns a field value or "" when absent.
func (m Message) Get(field string) string {
	return m.Fields[field]
}

// Envelope decodes an entry written by Publisher.
func (m Message) Envelope() (Envelope, error) {
	env := Envelope{
		EventID:       m.Get(FieldEventID),
		EventType:     m.Get(FieldEventType),
		AggregateType: m.Get(FieldAggregateType),
		Key:           m.Get(FieldKey),
		Value:         []byte(m.Get(FieldValue)),
	}
	if env.EventID == "" || env.EventType == "" || len(env.Value) == 0 {
		return Envelope{}, apperrors.Wrap(apperrors.ErrInvalidInput,
			fmt.Sprintf("stream entry %s/%s is not an event envelope", m.Stream, m.ID))
	}
	return env, nil
}

func newMessage(stream string, x redis.XMessage) Message {
	fields := make(map[string]string, len(x.Values))
	for k, v := range x.Values {
		switch val := v.(type) {
		case string:
			fields[k] = val
		case []byte:
			fields[k] = string(val)
		default:
			fields[k] = fmt.Sprint(val)
		}
	}
	return Message{Stream: stream, ID: x.ID, Fields: fields}
}

// Partition maps key onto one of n partitions.
func Partition(key string, n int) int {
	if n <= 1 {
		return 0
	}
	return int(xxhash.Sum64String(key) % uint64(n))
}

// StreamName is the Redis key of one topic partition.
func StreamName(prefix, topic string, partition int) string {
	return fmt.Sprintf("%s%s:%d", prefix, topic, partition)
}

// TopicStreams lists every partition stream of a topic.
func TopicStreams(prefix, topic string, partitions int) []string {
	if partitions < 1 {
		partitions = 1
	}
	streams := make([]string, partitions)
	for i := range streams {
		streams[i] = StreamName(prefix, topic, i)
	}
	return streams
}
