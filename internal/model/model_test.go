package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCartAggregates(t *testing.T) {
	c := Cart{Items: []Item{
		{ID: 1, ProductID: 10, UnitPrice: decimal.NewFromInt(500), Quantity: 3},
		{ID: 2, ProductID: 11, UnitPrice: decimal.RequireFromString("249.50"), Quantity: 2},
	}}

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 5, c.ItemCount())
	assert.True(t, c.Subtotal().Equal(decimal.NewFromInt(1999)), "got %s", c.Subtotal())
	assert.False(t, c.Empty())

	c.Items[0].Quantity = 1
	assert.True(t, c.Subtotal().Equal(decimal.NewFromInt(999)), "subtotal must follow the lines")
}

func TestItemIdentity(t *testing.T) {
	withID := Item{ID: 42, ProductID: 7}
	assert.Equal(t, "item:42", withID.Key())
	assert.Equal(t, int64(42), withID.MutationID())

	withoutID := Item{ProductID: 7}
	assert.Equal(t, "product:7", withoutID.Key())
	assert.Equal(t, int64(7), withoutID.MutationID())

	c := Cart{Items: []Item{withID, withoutID}}
	got, ok := c.Find("product:7")
	assert.True(t, ok)
	assert.Equal(t, int64(0), got.ID)
}

func TestCartCloneIsIndependent(t *testing.T) {
	c := Cart{Items: []Item{{ID: 1, Quantity: 2}}}
	cp := c.Clone()
	cp.Items[0].Quantity = 9
	assert.Equal(t, 2, c.Items[0].Quantity)
}

func TestStoreRef(t *testing.T) {
	known := KnownStore(3, "Green Bakery")
	id, ok := known.ID()
	assert.True(t, ok)
	assert.Equal(t, int64(3), id)
	assert.Equal(t, "Green Bakery", known.String())

	assert.Equal(t, "store #4", KnownStore(4, "").String())

	unknown := UnresolvedStore()
	assert.False(t, unknown.Resolved())
	assert.Equal(t, "unknown store", unknown.String())
	assert.False(t, KnownStore(0, "ghost").Resolved())
}

func TestProductStockClampsNegative(t *testing.T) {
	p := Product{ID: 5, StockQuantity: -2, Active: true}
	assert.Equal(t, StockSnapshot{ProductID: 5, Available: 0, Active: true}, p.Stock())
}

func TestPaymentMethodAvailability(t *testing.T) {
	assert.True(t, PaymentCash.Available())
	assert.False(t, PaymentCard.Available())
}
