package entity

import (
	"fmt"
	"time"
)

// OrderAggregate tracks an order's lifecycle by replaying its events. The
// order lines live in the read model; the stream only records transitions.
type OrderAggregate struct {
	AggregateBase
	OrderID     int64
	Number      string
	Status      string
	PlacedAt    time.Time
	ConfirmedAt time.Time
}

var orderEvents = decoders{
	"OrderPlaced":    decodeAs[OrderPlaced],
	"OrderConfirmed": decodeAs[OrderConfirmed],
}

// NewOrderAggregate creates an order aggregate for the given stream.
func NewOrderAggregate(id string) *OrderAggregate {
	return &OrderAggregate{AggregateBase: AggregateBase{ID: id}}
}

// ApplyEvent mutates the aggregate state based on the event.
func (a *OrderAggregate) ApplyEvent(e Event) error {
	switch e := e.(type) {
	case OrderPlaced:
		a.OrderID = e.OrderID
		a.Number = e.OrderNumber
		a.Status = OrderStatusPlaced
		a.PlacedAt = e.PlacedAt
	case OrderConfirmed:
		if a.Status == "" {
			return fmt.Errorf("order %d confirmed before it was placed", e.OrderID)
		}
		a.Status = OrderStatusConfirmed
		a.ConfirmedAt = e.ConfirmedAt
	default:
		return fmt.Errorf("unknown event type for OrderAggregate: %s", e.EventType())
	}
	a.Version++
	return nil
}

// Rehydrate rebuilds the aggregate from a list of records.
func (a *OrderAggregate) Rehydrate(records []EventStoreRecord) error {
	return rehydrate(a, orderEvents, records)
}
