package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records(t *testing.T, stream string, events ...Event) []EventStoreRecord {
	t.Helper()
	out := make([]EventStoreRecord, 0, len(events))
	for i, e := range events {
		payload, err := json.Marshal(e)
		require.NoError(t, err)
		out = append(out, EventStoreRecord{StreamID: stream, Version: i + 1, EventType: e.EventType(), Payload: payload})
	}
	return out
}

func TestCartAggregateReplay(t *testing.T) {
	cartID := CartStreamID("u1")
	price := decimal.NewFromInt(500)
	recs := records(t, cartID,
		ItemAddedToCart{CartID: cartID, LineID: 1, ProductID: 7, StoreID: 2, Name: "Bakery box", Price: price, Quantity: 1},
		ItemAddedToCart{CartID: cartID, LineID: 2, ProductID: 8, StoreID: 2, Name: "Veggie box", Price: price, Quantity: 2},
		ItemAddedToCart{CartID: cartID, LineID: 3, ProductID: 7, Price: price, Quantity: 2},
		ItemQuantityChanged{CartID: cartID, LineID: 2, Quantity: 0},
	)

	agg := NewCartAggregate(cartID)
	require.NoError(t, agg.Rehydrate(recs))

	require.Len(t, agg.Lines, 1)
	line := agg.Lines[0]
	assert.Equal(t, int64(1), line.ID, "adding an existing product keeps its line")
	assert.Equal(t, 3, line.Quantity)
	assert.Equal(t, 4, agg.GetVersion())
	assert.True(t, agg.Subtotal().Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, int64(3), agg.NextLineID())
}

func TestCartAggregateRemoveAndClear(t *testing.T) {
	agg := NewCartAggregate("cart:u1")
	price := decimal.NewFromInt(100)
	require.NoError(t, agg.ApplyEvent(ItemAddedToCart{LineID: 1, ProductID: 7, Price: price, Quantity: 1}))
	require.NoError(t, agg.ApplyEvent(ItemAddedToCart{LineID: 2, ProductID: 8, Price: price, Quantity: 1}))

	require.NoError(t, agg.ApplyEvent(ItemRemovedFromCart{LineID: 1}))
	_, ok := agg.Line(1)
	assert.False(t, ok)
	assert.Equal(t, 1, agg.TotalItems())

	require.NoError(t, agg.ApplyEvent(CartCleared{}))
	assert.Empty(t, agg.Lines)
	assert.Equal(t, 4, agg.GetVersion())
}

func TestRehydrateRejectsUnknownEvent(t *testing.T) {
	agg := NewCartAggregate("cart:u1")
	err := agg.Rehydrate([]EventStoreRecord{{StreamID: "cart:u1", EventType: "CouponApplied", Payload: []byte("{}")}})
	assert.ErrorContains(t, err, "unknown event type CouponApplied")
}

func TestOrderAggregate(t *testing.T) {
	stream := OrderStreamID(1)
	placedAt := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	agg := NewOrderAggregate(stream)
	require.NoError(t, agg.Rehydrate(records(t, stream,
		OrderPlaced{OrderID: 1, OrderNumber: "ORD-2025-001", PlacedAt: placedAt},
		OrderConfirmed{OrderID: 1, ConfirmedAt: placedAt.Add(time.Second)},
	)))
	assert.Equal(t, OrderStatusConfirmed, agg.Status)
	assert.Equal(t, "ORD-2025-001", agg.Number)
	assert.Equal(t, 2, agg.GetVersion())

	fresh := NewOrderAggregate(OrderStreamID(2))
	assert.Error(t, fresh.ApplyEvent(OrderConfirmed{OrderID: 2}))
}
