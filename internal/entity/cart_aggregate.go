package entity

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CartLine is one product in a cart.
type CartLine struct {
	ID        int64
	ProductID int64
	StoreID   int64
	Name      string
	ImageURL  string
	Price     decimal.Decimal
	Quantity  int
}

// LineTotal is price times quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartAggregate is a shopper's cart rebuilt by replaying its events. Lines
// keep the order in which products were first added.
type CartAggregate struct {
	AggregateBase
	Lines []*CartLine

	lastLineID int64
}

var cartEvents = decoders{
	"ItemAddedToCart":     decodeAs[ItemAddedToCart],
	"ItemQuantityChanged": decodeAs[ItemQuantityChanged],
	"ItemRemovedFromCart": decodeAs[ItemRemovedFromCart],
	"CartCleared":         decodeAs[CartCleared],
}

// NewCartAggregate creates an empty cart for the given stream.
func NewCartAggregate(cartID string) *CartAggregate {
	return &CartAggregate{AggregateBase: AggregateBase{ID: cartID}}
}

// NextLineID is the id a newly added product will get.
func (a *CartAggregate) NextLineID() int64 { return a.lastLineID + 1 }

// Line returns the line with the given id.
func (a *CartAggregate) Line(id int64) (*CartLine, bool) {
	for _, l := range a.Lines {
		if l.ID == id {
			return l, true
		}
	}
	return nil, false
}

// LineForProduct returns the line holding the given product.
func (a *CartAggregate) LineForProduct(productID int64) (*CartLine, bool) {
	for _, l := range a.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return nil, false
}

// TotalItems is the sum of line quantities.
func (a *CartAggregate) TotalItems() int {
	n := 0
	for _, l := range a.Lines {
		n += l.Quantity
	}
	return n
}

// Subtotal is the sum of line totals.
func (a *CartAggregate) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range a.Lines {
		sum = sum.Add(l.LineTotal())
	}
	return sum
}

// ApplyEvent mutates the aggregate state based on the event.
func (a *CartAggregate) ApplyEvent(e Event) error {
	switch e := e.(type) {
	case ItemAddedToCart:
		if l, ok := a.LineForProduct(e.ProductID); ok {
			l.Quantity += e.Quantity
		} else {
			a.Lines = append(a.Lines, &CartLine{
				ID:        e.LineID,
				ProductID: e.ProductID,
				StoreID:   e.StoreID,
				Name:      e.Name,
				ImageURL:  e.ImageURL,
				Price:     e.Price,
				Quantity:  e.Quantity,
			})
			if e.LineID > a.lastLineID {
				a.lastLineID = e.LineID
			}
		}
	case ItemQuantityChanged:
		if e.Quantity <= 0 {
			a.removeLine(e.LineID)
		} else if l, ok := a.Line(e.LineID); ok {
			l.Quantity = e.Quantity
		}
	case ItemRemovedFromCart:
		a.removeLine(e.LineID)
	case CartCleared:
		a.Lines = nil
	default:
		return fmt.Errorf("unknown event type for CartAggregate: %s", e.EventType())
	}
	a.Version++
	return nil
}

func (a *CartAggregate) removeLine(id int64) {
	kept := a.Lines[:0]
	for _, l := range a.Lines {
		if l.ID != id {
			kept = append(kept, l)
		}
	}
	a.Lines = kept
}

// Rehydrate rebuilds the aggregate from a list of records.
func (a *CartAggregate) Rehydrate(records []EventStoreRecord) error {
	return rehydrate(a, cartEvents, records)
}
