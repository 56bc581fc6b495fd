package events

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/classware-tech/switchboard/core/logger"
)

// KafkaBroadcaster publishes state-change events to a Kafka topic. The
// device's hardware address is used as the message key, so the per-device
// event order survives partitioning.
type KafkaBroadcaster struct {
	writer *kafka.Writer
}

// NewKafkaBroadcaster returns a broadcaster writing to the given brokers and
// topic. Writes are asynchronous, failed deliveries are logged.
func NewKafkaBroadcaster(brokers []string, topic string) *KafkaBroadcaster {
	return &KafkaBroadcaster{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
			Async:    true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					logger.Default().Errorln("cannot publish", len(messages), "events to kafka:", err)
				}
			},
		},
	}
}

// Broadcast implements Broadcaster. There is no retry, events are
// at-most-once like every other delivery in this package.
func (b *KafkaBroadcaster) Broadcast(ctx context.Context, event StateChangeEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.FromContext(ctx).Errorln("cannot marshal event:", err)
		return
	}
	b.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.MAC),
		Value: payload,
	})
}

// Close flushes and closes the underlying writer.
func (b *KafkaBroadcaster) Close() error {
	return b.writer.Close()
}
