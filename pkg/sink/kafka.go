package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes each script as a single message keyed by its name, so a
// fleet of harness runners can pick workloads off a topic.
type KafkaSink struct {
	writer messageWriter
	topic  string
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
			BatchBytes:   16 << 20, // large scripts go out as one message
		},
		topic: topic,
	}
}

func (k *KafkaSink) Name() string { return "kafka" }

func (k *KafkaSink) Write(ctx context.Context, name string, data []byte) (string, error) {
	err := k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(name),
		Value: data,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("text/plain")},
		},
	})
	if err != nil {
		return "", fmt.Errorf("publish %s to %s: %w", name, k.topic, err)
	}
	return "kafka://" + k.topic + "/" + name, nil
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
