package repository

import (
	"context"
	"errors"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrConcurrency means the stream moved past the expected version.
	ErrConcurrency = errors.New("concurrent modification of event stream")
)

// StoreRepository handles persistence for partner stores.
type StoreRepository interface {
	FindByID(ctx context.Context, id int64) (entity.Store, error)
	// Seed inserts the stores if none exist.
	Seed(ctx context.Context, stores []entity.Store) error
}

// ProductRepository handles persistence for Products.
type ProductRepository interface {
	FindAll(ctx context.Context) ([]entity.Product, error)
	FindByID(ctx context.Context, id int64) (entity.Product, error)
	// SetStock overwrites the stock of a product, as a store does when it
	// reports what is left.
	SetStock(ctx context.Context, id int64, stock int) error
	// Seed inserts the products if none exist.
	Seed(ctx context.Context, products []entity.Product) error
}

// OrderRepository handles persistence for the order read model.
type OrderRepository interface {
	// Create stores the order and takes its quantities from product stock in
	// one step. It assigns ID, Number and CreatedAt. When any product lacks
	// stock nothing is written and ErrInsufficientStock is returned.
	Create(ctx context.Context, order *entity.Order) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	FindByID(ctx context.Context, id int64) (entity.Order, error)
	// FindByShopper lists a shopper's orders, newest first.
	FindByShopper(ctx context.Context, shopperID string) ([]entity.Order, error)
}

// EventStore handles appending and loading events for an aggregate stream.
type EventStore interface {
	SaveEvents(ctx context.Context, streamID string, streamType string, expectedVersion int, events []entity.Event) error
	LoadEvents(ctx context.Context, streamID string) ([]entity.EventStoreRecord, error)
}
