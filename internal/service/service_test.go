package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/memory"
)

type published struct {
	topic string
	key   string
	event any
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, published{topic, key, event})
	return p.err
}

type fixture struct {
	db     *memory.DB
	cart   *CartService
	orders *OrderService
	pub    *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memory.New()
	db.SetClock(func() time.Time { return time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC) })
	ctx := context.Background()
	require.NoError(t, db.Stores().Seed(ctx, []entity.Store{{ID: 2, Name: "Green Bakery"}}))
	require.NoError(t, db.Products().Seed(ctx, []entity.Product{
		{ID: 7, StoreID: 2, Name: "Bakery box", Price: decimal.NewFromInt(1000), Stock: 5, Active: true},
		{ID: 8, StoreID: 2, Name: "Veggie box", Price: decimal.NewFromInt(500), Stock: 1, Active: true},
		{ID: 9, StoreID: 2, Name: "Yesterday's box", Price: decimal.NewFromInt(300), Stock: 4, Active: false},
	}))
	pub := &recordingPublisher{}
	return &fixture{
		db:     db,
		cart:   NewCartService(db.Events(), db.Products(), nil),
		orders: NewOrderService(db.Orders(), db.Products(), db.Events(), pub, nil),
		pub:    pub,
	}
}

func TestCartAddMergesProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.cart.AddItem(ctx, "u1", 7, 1)
	require.NoError(t, err)
	agg, err := f.cart.AddItem(ctx, "u1", 7, 2)
	require.NoError(t, err)

	require.Len(t, agg.Lines, 1)
	assert.Equal(t, 3, agg.Lines[0].Quantity)
	assert.Equal(t, int64(2), agg.Lines[0].StoreID)
	assert.True(t, agg.Subtotal().Equal(decimal.NewFromInt(3000)))

	other, err := f.cart.GetCart(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other.Lines, "carts are per shopper")
}

func TestCartAddValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.cart.AddItem(ctx, "u1", 7, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = f.cart.AddItem(ctx, "u1", 9, 1)
	assert.ErrorIs(t, err, ErrProductUnavailable)
	_, err = f.cart.AddItem(ctx, "u1", 404, 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.cart.AddItem(ctx, "u1", 8, 2)
	assert.ErrorIs(t, err, repository.ErrInsufficientStock)
}

func TestCartUpdateToZeroRemoves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	agg, err := f.cart.AddItem(ctx, "u1", 7, 2)
	require.NoError(t, err)
	lineID := agg.Lines[0].ID

	agg, err = f.cart.UpdateItem(ctx, "u1", lineID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, agg.Lines[0].Quantity)

	agg, err = f.cart.UpdateItem(ctx, "u1", lineID, 0)
	require.NoError(t, err)
	assert.Empty(t, agg.Lines)

	_, err = f.cart.RemoveItem(ctx, "u1", lineID)
	assert.ErrorIs(t, err, ErrLineNotFound)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCartClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.cart.AddItem(ctx, "u1", 7, 1)
	require.NoError(t, err)
	agg, err := f.cart.Clear(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, agg.Lines)
	version := agg.GetVersion()

	agg, err = f.cart.Clear(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, version, agg.GetVersion(), "clearing an empty cart records nothing")
}

func cashOrder(items ...entity.PlaceOrderItem) *entity.PlaceOrder {
	return &entity.PlaceOrder{
		ShopperID: "u1", CustomerName: "Aigerim", CustomerPhone: "+7 700 000 00 00",
		PaymentMethod: "CASH", Items: items,
	}
}

func TestPlaceOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.orders.PlaceOrder(ctx, cashOrder(
		entity.PlaceOrderItem{ProductID: 7, Quantity: 2, UnitPrice: decimal.NewFromInt(1000)},
		entity.PlaceOrderItem{ProductID: 8, Quantity: 1, UnitPrice: decimal.NewFromInt(500)},
	))
	require.NoError(t, err)
	assert.Equal(t, "ORD-2025-001", order.Number)
	assert.Equal(t, entity.OrderStatusPlaced, order.Status)
	assert.Equal(t, int64(2), order.StoreID)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(2500)))

	p, err := f.db.Products().FindByID(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)

	require.Len(t, f.pub.sent, 1)
	assert.Equal(t, "orders.placed", f.pub.sent[0].topic)
	assert.Equal(t, "1", f.pub.sent[0].key)
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orders.PlaceOrder(ctx, cashOrder())
	assert.ErrorIs(t, err, ErrEmptyOrder)

	card := cashOrder(entity.PlaceOrderItem{ProductID: 7, Quantity: 1})
	card.PaymentMethod = "CARD"
	_, err = f.orders.PlaceOrder(ctx, card)
	assert.ErrorIs(t, err, ErrPaymentMethod)

	_, err = f.orders.PlaceOrder(ctx, cashOrder(entity.PlaceOrderItem{ProductID: 9, Quantity: 1}))
	assert.ErrorIs(t, err, ErrProductUnavailable)

	_, err = f.orders.PlaceOrder(ctx, cashOrder(entity.PlaceOrderItem{ProductID: 8, Quantity: 3}))
	assert.ErrorIs(t, err, repository.ErrInsufficientStock)

	assert.Empty(t, f.pub.sent)
}

func TestPublishFailureDoesNotLoseOrder(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")
	order, err := f.orders.PlaceOrder(context.Background(), cashOrder(entity.PlaceOrderItem{ProductID: 7, Quantity: 1}))
	require.NoError(t, err)

	mine, err := f.orders.MyOrders(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, order.ID, mine[0].ID)
}

func TestHandleOrderPlacedIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order, err := f.orders.PlaceOrder(ctx, cashOrder(entity.PlaceOrderItem{ProductID: 7, Quantity: 1}))
	require.NoError(t, err)

	placed := f.pub.sent[0].event.(entity.OrderPlaced)
	require.NoError(t, f.orders.HandleOrderPlaced(ctx, &placed))
	require.NoError(t, f.orders.HandleOrderPlaced(ctx, &placed))

	got, err := f.db.Orders().FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusConfirmed, got.Status)

	recs, err := f.db.Events().LoadEvents(ctx, entity.OrderStreamID(order.ID))
	require.NoError(t, err)
	assert.Len(t, recs, 2, "placed + one confirmation")

	var confirmations int
	for _, p := range f.pub.sent {
		if p.topic == "orders.confirmed" {
			confirmations++
		}
	}
	assert.Equal(t, 1, confirmations)
}
