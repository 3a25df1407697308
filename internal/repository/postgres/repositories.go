package postgres

import (
	"database/sql"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// Repositories bundles every Postgres-backed repository over one pool.
type Repositories struct {
	Stores   repository.StoreRepository
	Products repository.ProductRepository
	Orders   repository.OrderRepository
	Events   repository.EventStore
}

// NewRepositories wires all repositories to db.
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Stores:   NewStoreRepository(db),
		Products: NewProductRepository(db),
		Orders:   NewOrderRepository(db),
		Events:   NewEventStore(db),
	}
}
