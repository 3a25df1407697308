package model

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Item is a normalized cart line as the storefront sees it.
type Item struct {
	ID        int64 // assigned by the backend; 0 when the record carried none
	ProductID int64
	Name      string
	UnitPrice decimal.Decimal // snapshot taken when the item was added
	Quantity  int
	ImageURL  string
	Store     StoreRef
}

// Key identifies the item inside a cart: the backend item id, or the product
// id when the backend did not assign one.
func (i Item) Key() string {
	if i.ID != 0 {
		return "item:" + strconv.FormatInt(i.ID, 10)
	}
	return "product:" + strconv.FormatInt(i.ProductID, 10)
}

// MutationID is the id sent to the item endpoints.
func (i Item) MutationID() int64 {
	if i.ID != 0 {
		return i.ID
	}
	return i.ProductID
}

// LineTotal is unit price times quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart mirrors the backend cart of the signed-in shopper.
//
// Aggregates are methods so they are recomputed from Items on every call and
// can never drift from the lines they describe.
type Cart struct {
	Items []Item
	// Total is the figure reported by the backend. Pickup orders carry no
	// fees, so it normally equals Subtotal.
	Total decimal.Decimal
}

// Len returns the number of lines.
func (c Cart) Len() int { return len(c.Items) }

// Empty reports whether the cart has no lines.
func (c Cart) Empty() bool { return len(c.Items) == 0 }

// ItemCount returns the sum of all line quantities.
func (c Cart) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Subtotal returns the sum of all line totals.
func (c Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range c.Items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

// Find looks an item up by Key.
func (c Cart) Find(key string) (Item, bool) {
	for _, it := range c.Items {
		if it.Key() == key {
			return it, true
		}
	}
	return Item{}, false
}

// Clone returns a deep copy so callers can hold a snapshot safely.
func (c Cart) Clone() Cart {
	out := Cart{Total: c.Total}
	if c.Items != nil {
		out.Items = make([]Item, len(c.Items))
		copy(out.Items, c.Items)
	}
	return out
}
