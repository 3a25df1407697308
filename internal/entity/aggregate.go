package entity

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Stream types recorded with every event.
const (
	StreamCart  = "cart"
	StreamOrder = "order"
)

// CartStreamID is the event stream holding a shopper's cart.
func CartStreamID(shopperID string) string { return StreamCart + ":" + shopperID }

// OrderStreamID is the event stream holding an order's lifecycle.
func OrderStreamID(orderID int64) string {
	return StreamOrder + ":" + strconv.FormatInt(orderID, 10)
}

// EventStoreRecord is an event as persisted in the event store.
type EventStoreRecord struct {
	ID         string
	StreamID   string
	StreamType string
	Version    int
	EventType  string
	Payload    []byte
	CreatedAt  time.Time
}

// Event is a domain event.
type Event interface {
	EventType() string
}

// Aggregate is a domain aggregate root rebuilt from its event stream.
type Aggregate interface {
	GetAggregateID() string
	GetVersion() int
	ApplyEvent(event Event) error
}

// AggregateBase carries the identity and stream version of an aggregate.
type AggregateBase struct {
	ID      string
	Version int
}

func (a *AggregateBase) GetAggregateID() string { return a.ID }

func (a *AggregateBase) GetVersion() int { return a.Version }

// decoders maps an event type name to a function decoding its payload.
type decoders map[string]func([]byte) (Event, error)

func decodeAs[E Event](payload []byte) (Event, error) {
	var e E
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, err
	}
	return e, nil
}

// rehydrate replays records onto agg.
func rehydrate(agg Aggregate, known decoders, records []EventStoreRecord) error {
	for _, rec := range records {
		decode, ok := known[rec.EventType]
		if !ok {
			return fmt.Errorf("unknown event type %s in stream %s", rec.EventType, rec.StreamID)
		}
		e, err := decode(rec.Payload)
		if err != nil {
			return fmt.Errorf("failed to decode %s (version %d): %w", rec.EventType, rec.Version, err)
		}
		if err := agg.ApplyEvent(e); err != nil {
			return fmt.Errorf("failed to apply %s (version %d): %w", rec.EventType, rec.Version, err)
		}
	}
	return nil
}
