// Package api defines the JSON bodies exchanged with the marketplace backend.
// The development backend encodes them and the storefront client decodes
// them, so both sides share one definition of the contract.
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// Error is the body of every non-2xx response.
type Error struct {
	Error string `json:"error"`
}

// CartItem is a cart line as stored by the backend.
type CartItem struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	StoreID     *int64          `json:"storeId,omitempty"`
	StoreName   string          `json:"storeName,omitempty"`
}

// Cart is the authoritative cart of the signed-in shopper.
type Cart struct {
	ID         string          `json:"id,omitempty"`
	Items      []CartItem      `json:"items"`
	TotalItems int             `json:"totalItems"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Total      decimal.Decimal `json:"total"`
}

// AddItemRequest is the body of POST cart/items.
type AddItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// Product is a catalog record.
type Product struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	ImageURL      string          `json:"imageUrl,omitempty"`
	Category      string          `json:"category,omitempty"`
	StockQuantity int             `json:"stockQuantity"`
	Active        bool            `json:"active"`
	StoreID       int64           `json:"storeId"`
	StoreName     string          `json:"storeName,omitempty"`
}

// Store is a partner store.
type Store struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Hours   string `json:"hours"`
}

// OrderItemRequest is one line of CreateOrderRequest.
type OrderItemRequest struct {
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// CreateOrderRequest is the body of POST orders.
type CreateOrderRequest struct {
	CustomerName  string             `json:"customerName"`
	CustomerPhone string             `json:"customerPhone"`
	PaymentMethod string             `json:"paymentMethod"`
	Comment       string             `json:"comment,omitempty"`
	Items         []OrderItemRequest `json:"items"`
}

// OrderItem is a frozen order line.
type OrderItem struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}

// Order is a created order.
type Order struct {
	ID            int64           `json:"id"`
	OrderNumber   string          `json:"orderNumber"`
	Status        string          `json:"status"`
	CustomerName  string          `json:"customerName"`
	CustomerPhone string          `json:"customerPhone"`
	PaymentMethod string          `json:"paymentMethod"`
	Comment       string          `json:"comment,omitempty"`
	Items         []OrderItem     `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Total         decimal.Decimal `json:"total"`
	StoreID       int64           `json:"storeId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}
