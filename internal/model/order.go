package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how the shopper pays at pickup.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "CASH"
	// PaymentCard is reserved by the backend contract but not offered.
	PaymentCard PaymentMethod = "CARD"
)

// Available reports whether the method can be used for new orders.
func (m PaymentMethod) Available() bool { return m == PaymentCash }

// OrderRequestItem is one line of an order submission.
type OrderRequestItem struct {
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

// OrderRequest is the payload sent to create an order.
type OrderRequest struct {
	CustomerName  string
	CustomerPhone string
	PaymentMethod PaymentMethod
	Comment       string
	Items         []OrderRequestItem
}

// OrderLine is a frozen copy of a cart line inside an order.
type OrderLine struct {
	ProductID int64
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// LineTotal is unit price times quantity.
func (l OrderLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is a created order. The client never mutates it; status transitions
// belong to the backend.
type Order struct {
	ID            int64
	Number        string
	Status        string
	CustomerName  string
	CustomerPhone string
	PaymentMethod PaymentMethod
	Comment       string
	Lines         []OrderLine
	Subtotal      decimal.Decimal
	Total         decimal.Decimal
	StoreID       int64
	CreatedAt     time.Time
}

// Confirmed reports whether the backend assigned an identity to the order.
func (o Order) Confirmed() bool { return o.ID > 0 || o.Number != "" }

// ItemCount returns the sum of line quantities.
func (o Order) ItemCount() int {
	n := 0
	for _, l := range o.Lines {
		n += l.Quantity
	}
	return n
}
