// Package messaging carries domain events between the order service and its
// consumers.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Topics used by the development backend.
const (
	TopicOrdersPlaced    = "orders.placed"
	TopicOrdersConfirmed = "orders.confirmed"
)

// Handler processes one message payload.
type Handler func(ctx context.Context, payload []byte) error

// Publisher defines an interface for publishing events to a message broker.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, key string, event any) error
}

// Subscriber defines an interface for subscribing to a message topic.
// Consume blocks until ctx is done.
type Subscriber interface {
	Consume(ctx context.Context, topic string, groupID string, handler Handler)
}

// InProc is a broker living inside the process, used when no Kafka cluster
// is configured. Every consumer group of a topic gets every message.
type InProc struct {
	mu     sync.Mutex
	queues map[string]map[string]chan []byte // topic -> group -> queue
	logger *slog.Logger
}

// NewInProc creates an in-process broker.
func NewInProc(logger *slog.Logger) *InProc {
	if logger == nil {
		logger = slog.Default()
	}
	return &InProc{queues: make(map[string]map[string]chan []byte), logger: logger}
}

func (b *InProc) queue(topic, group string) chan []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	groups, ok := b.queues[topic]
	if !ok {
		groups = make(map[string]chan []byte)
		b.queues[topic] = groups
	}
	q, ok := groups[group]
	if !ok {
		q = make(chan []byte, 64)
		groups[group] = q
	}
	return q
}

// PublishEvent hands the JSON-encoded event to every group subscribed to
// topic. Messages for a topic nobody consumes are dropped.
func (b *InProc) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	b.mu.Lock()
	queues := make([]chan []byte, 0, len(b.queues[topic]))
	for _, q := range b.queues[topic] {
		queues = append(queues, q)
	}
	b.mu.Unlock()

	for _, q := range queues {
		select {
		case q <- payload:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	b.logger.Debug("Published event", "topic", topic, "key", key, "consumers", len(queues))
	return nil
}

// Consume delivers messages of topic to handler until ctx is done.
func (b *InProc) Consume(ctx context.Context, topic string, groupID string, handler Handler) {
	q := b.queue(topic, groupID)
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Consumer shutting down", "topic", topic)
			return
		case payload := <-q:
			if err := handler(ctx, payload); err != nil {
				b.logger.Error("Error handling message", "topic", topic, "err", err)
			}
		}
	}
}

// Subscribed reports whether groupID consumes topic. It lets callers wait
// for a consumer goroutine to be ready.
func (b *InProc) Subscribed(topic, groupID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.queues[topic][groupID]
	return ok
}
