package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Store is a partner store selling discounted boxes.
type Store struct {
	ID      int64  `yaml:"id"`
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Phone   string `yaml:"phone"`
	Hours   string `yaml:"hours"`
}

// Product is a box offered by a store. Stock is the number of boxes left
// today; it only goes down when an order is placed.
type Product struct {
	ID            int64           `yaml:"id"`
	StoreID       int64           `yaml:"store_id"`
	Name          string          `yaml:"name"`
	Description   string          `yaml:"description"`
	Price         decimal.Decimal `yaml:"price"`
	OriginalPrice decimal.Decimal `yaml:"original_price"`
	ImageURL      string          `yaml:"image_url"`
	Category      string          `yaml:"category"`
	Stock         int             `yaml:"stock"`
	Active        bool            `yaml:"active"`
}

// Order statuses.
const (
	OrderStatusPlaced    = "PLACED"
	OrderStatusConfirmed = "CONFIRMED"
)

// PaymentCash is the only payment method accepted for pickup orders.
const PaymentCash = "CASH"

// OrderItem is a line item within an order, priced when the order was placed.
type OrderItem struct {
	ProductID int64
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// LineTotal is unit price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is the read model of a placed order.
type Order struct {
	ID            int64
	Number        string
	ShopperID     string
	StoreID       int64
	Status        string
	CustomerName  string
	CustomerPhone string
	PaymentMethod string
	Comment       string
	Items         []OrderItem
	Subtotal      decimal.Decimal
	Total         decimal.Decimal
	CreatedAt     time.Time
}

// --- Commands ---

// PlaceOrder is the command to create an order for a shopper.
type PlaceOrder struct {
	ShopperID     string
	CustomerName  string
	CustomerPhone string
	PaymentMethod string
	Comment       string
	Items         []PlaceOrderItem
}

// PlaceOrderItem is one requested line. The unit price is what the shopper
// saw; the order is priced from the catalog.
type PlaceOrderItem struct {
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

// --- Order events ---

// OrderPlaced is emitted once the order is persisted and stock is taken.
type OrderPlaced struct {
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	ShopperID   string          `json:"shopper_id"`
	Total       decimal.Decimal `json:"total"`
	PlacedAt    time.Time       `json:"placed_at"`
}

func (e OrderPlaced) EventType() string { return "OrderPlaced" }

// OrderConfirmed is emitted when the store side accepted the order.
type OrderConfirmed struct {
	OrderID     int64     `json:"order_id"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

func (e OrderConfirmed) EventType() string { return "OrderConfirmed" }

// --- Cart events ---

// ItemAddedToCart is emitted when a shopper puts a box into the cart. Adding
// a product that already has a line raises that line's quantity.
type ItemAddedToCart struct {
	CartID    string          `json:"cart_id"`
	LineID    int64           `json:"line_id"`
	ProductID int64           `json:"product_id"`
	StoreID   int64           `json:"store_id"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image_url,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

func (e ItemAddedToCart) EventType() string { return "ItemAddedToCart" }

// ItemQuantityChanged sets the quantity of a line. Zero or less removes it.
type ItemQuantityChanged struct {
	CartID   string `json:"cart_id"`
	LineID   int64  `json:"line_id"`
	Quantity int    `json:"quantity"`
}

func (e ItemQuantityChanged) EventType() string { return "ItemQuantityChanged" }

// ItemRemovedFromCart is emitted when a line is deleted.
type ItemRemovedFromCart struct {
	CartID string `json:"cart_id"`
	LineID int64  `json:"line_id"`
}

func (e ItemRemovedFromCart) EventType() string { return "ItemRemovedFromCart" }

// CartCleared is emitted when every line is deleted at once.
type CartCleared struct {
	CartID string `json:"cart_id"`
}

func (e CartCleared) EventType() string { return "CartCleared" }

// OrderNumber formats the shopper-facing number of the seq-th order of a year.
func OrderNumber(year, seq int) string {
	return fmt.Sprintf("ORD-%d-%03d", year, seq)
}
