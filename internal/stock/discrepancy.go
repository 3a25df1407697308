package stock

import (
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/model"
)

// Kind classifies a stock problem with one cart line.
type Kind int

const (
	// Unavailable: nothing left, or the product was taken off sale.
	Unavailable Kind = iota + 1
	// PartiallyShort: some stock left, but less than the cart asks for.
	PartiallyShort
)

func (k Kind) String() string {
	switch k {
	case Unavailable:
		return "unavailable"
	case PartiallyShort:
		return "partially short"
	default:
		return "unknown"
	}
}

// Discrepancy is one cart line that cannot be fulfilled as requested.
type Discrepancy struct {
	Item      model.Item
	Requested int
	Available int
	Kind      Kind
}

// Classify compares a cart line with the live stock of its product. The
// second result is false when the line can be fulfilled.
func Classify(item model.Item, snap model.StockSnapshot) (Discrepancy, bool) {
	d := Discrepancy{Item: item, Requested: item.Quantity, Available: snap.Available}
	switch {
	case !snap.Active || snap.Available <= 0:
		d.Available = 0
		d.Kind = Unavailable
	case snap.Available < item.Quantity:
		d.Kind = PartiallyShort
	default:
		return Discrepancy{}, false
	}
	return d, true
}

// Report is the outcome of one scan.
type Report struct {
	Discrepancies []Discrepancy
	// Skipped lists lines whose product lookup failed. They are neither
	// fine nor broken as far as the report knows.
	Skipped   []model.Item
	ScannedAt time.Time
}

// Clean reports whether no discrepancy was found.
func (r Report) Clean() bool { return len(r.Discrepancies) == 0 }

// Unavailable returns the discrepancies of kind Unavailable.
func (r Report) Unavailable() []Discrepancy { return r.ofKind(Unavailable) }

// PartiallyShort returns the discrepancies of kind PartiallyShort.
func (r Report) PartiallyShort() []Discrepancy { return r.ofKind(PartiallyShort) }

func (r Report) ofKind(k Kind) []Discrepancy {
	var out []Discrepancy
	for _, d := range r.Discrepancies {
		if d.Kind == k {
			out = append(out, d)
		}
	}
	return out
}
