package kafka

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ariefcatur/kasir-till/internal/sales"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Bus routes envelopes to one producer per topic and satisfies sales.Publisher.
type Bus struct {
	producers map[string]*Producer
}

func NewBus(brokers []string, topics []string, buf int, log *zap.Logger) *Bus {
	b := &Bus{producers: make(map[string]*Producer, len(topics))}
	for _, t := range topics {
		b.producers[t] = NewProducer(brokers, t, buf, log)
	}
	return b
}

func (b *Bus) Start(ctx context.Context) {
	for _, p := range b.producers {
		p.Start(ctx)
	}
}

func (b *Bus) Publish(_ context.Context, topic string, env sales.Envelope) error {
	p, ok := b.producers[topic]
	if !ok {
		return fmt.Errorf("kafka: no producer for topic %s", topic)
	}
	return p.Publish(sales.PartitionKey(env.CorrelationID), MustMarshal(env),
		kafka.Header{Key: "x-event-type", Value: []byte(env.EventType)},
		kafka.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
	)
}

// Close flushes every producer and waits for them to finish.
func (b *Bus) Close() {
	for _, p := range b.producers {
		p.Close()
	}
	for _, p := range b.producers {
		p.WaitClosed()
	}
}

// LogPublisher stands in for Kafka when no brokers are configured.
type LogPublisher struct{ Log *zap.Logger }

func (l LogPublisher) Publish(_ context.Context, topic string, env sales.Envelope) error {
	if l.Log != nil {
		l.Log.Info("event",
			zap.String("topic", topic),
			zap.String("event_type", env.EventType),
			zap.String("correlation_id", env.CorrelationID),
			zap.ByteString("payload", env.Payload))
	}
	return nil
}
