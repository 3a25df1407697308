package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	kafkaGo "github.com/segmentio/kafka-go"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
)

// Broker publishes to and consumes from a Kafka cluster.
type Broker struct {
	brokers []string
	logger  *slog.Logger

	mu      sync.Mutex
	writers map[string]*kafkaGo.Writer
}

var (
	_ messaging.Publisher  = (*Broker)(nil)
	_ messaging.Subscriber = (*Broker)(nil)
)

// NewKafkaBroker creates a Kafka publisher and subscriber.
func NewKafkaBroker(brokers []string, logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{brokers: brokers, logger: logger, writers: make(map[string]*kafkaGo.Writer)}
}

func (k *Broker) writer(topic string) *kafkaGo.Writer {
	k.mu.Lock()
	defer k.mu.Unlock()
	w, ok := k.writers[topic]
	if !ok {
		w = &kafkaGo.Writer{
			Addr:                   kafkaGo.TCP(k.brokers...),
			Topic:                  topic,
			Balancer:               &kafkaGo.Hash{},
			AllowAutoTopicCreation: true,
		}
		k.writers[topic] = w
	}
	return w
}

// PublishEvent writes the JSON-encoded event keyed by key, so all events of
// one order land on the same partition.
func (k *Broker) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := k.writer(topic).WriteMessages(ctx, kafkaGo.Message{Key: []byte(key), Value: payload}); err != nil {
		return fmt.Errorf("failed to write to %s: %w", topic, err)
	}
	return nil
}

// Consume reads topic as part of groupID until ctx is done.
func (k *Broker) Consume(ctx context.Context, topic string, groupID string, handler messaging.Handler) {
	reader := kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers: k.brokers,
		Topic:   topic,
		GroupID: groupID,
	})
	defer reader.Close()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				k.logger.Info("Consumer shutting down", "topic", topic)
				return
			}
			k.logger.Error("Error reading message", "topic", topic, "err", err)
			continue
		}

		if err := handler(ctx, msg.Value); err != nil {
			k.logger.Error("Error handling message", "topic", topic, "offset", msg.Offset, "err", err)
		}
	}
}

// Close flushes and closes every writer.
func (k *Broker) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	var errs []error
	for topic, w := range k.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close writer %s: %w", topic, err))
		}
	}
	k.writers = make(map[string]*kafkaGo.Writer)
	return errors.Join(errs...)
}
