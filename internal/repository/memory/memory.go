// Package memory keeps the development backend's data in process memory.
// It is what boxapi runs on without a database, and what tests use.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// DB holds every table. The repositories it hands out share one lock so an
// order and its stock decrement are applied together.
type DB struct {
	mu       sync.Mutex
	now      func() time.Time
	stores   map[int64]entity.Store
	products map[int64]entity.Product
	orders   []entity.Order
	events   map[string][]entity.EventStoreRecord
	yearSeq  map[int]int
}

// New returns an empty database.
func New() *DB {
	return &DB{
		now:      time.Now,
		stores:   make(map[int64]entity.Store),
		products: make(map[int64]entity.Product),
		events:   make(map[string][]entity.EventStoreRecord),
		yearSeq:  make(map[int]int),
	}
}

// SetClock replaces the time source used for timestamps and order numbers.
func (db *DB) SetClock(now func() time.Time) { db.now = now }

func (db *DB) Stores() repository.StoreRepository     { return storeRepository{db} }
func (db *DB) Products() repository.ProductRepository { return productRepository{db} }
func (db *DB) Orders() repository.OrderRepository     { return orderRepository{db} }
func (db *DB) Events() repository.EventStore          { return eventStore{db} }

type storeRepository struct{ db *DB }

func (r storeRepository) FindByID(ctx context.Context, id int64) (entity.Store, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.stores[id]
	if !ok {
		return entity.Store{}, fmt.Errorf("store %d: %w", id, repository.ErrNotFound)
	}
	return s, nil
}

func (r storeRepository) Seed(ctx context.Context, stores []entity.Store) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if len(r.db.stores) > 0 {
		return nil
	}
	for _, s := range stores {
		r.db.stores[s.ID] = s
	}
	return nil
}

type productRepository struct{ db *DB }

func (r productRepository) FindAll(ctx context.Context) ([]entity.Product, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]entity.Product, 0, len(r.db.products))
	for _, p := range r.db.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r productRepository) FindByID(ctx context.Context, id int64) (entity.Product, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.products[id]
	if !ok {
		return entity.Product{}, fmt.Errorf("product %d: %w", id, repository.ErrNotFound)
	}
	return p, nil
}

func (r productRepository) SetStock(ctx context.Context, id int64, stock int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.products[id]
	if !ok {
		return fmt.Errorf("product %d: %w", id, repository.ErrNotFound)
	}
	p.Stock = stock
	r.db.products[id] = p
	return nil
}

func (r productRepository) Seed(ctx context.Context, products []entity.Product) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if len(r.db.products) > 0 {
		return nil
	}
	for _, p := range products {
		r.db.products[p.ID] = p
	}
	return nil
}

type orderRepository struct{ db *DB }

func (r orderRepository) Create(ctx context.Context, order *entity.Order) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, it := range order.Items {
		p, ok := r.db.products[it.ProductID]
		if !ok {
			return fmt.Errorf("product %d: %w", it.ProductID, repository.ErrNotFound)
		}
		if p.Stock < it.Quantity {
			return fmt.Errorf("product %d has %d left, %d requested: %w", p.ID, p.Stock, it.Quantity, repository.ErrInsufficientStock)
		}
	}
	for _, it := range order.Items {
		p := r.db.products[it.ProductID]
		p.Stock -= it.Quantity
		r.db.products[it.ProductID] = p
	}

	now := r.db.now()
	r.db.yearSeq[now.Year()]++
	order.ID = int64(len(r.db.orders) + 1)
	order.Number = entity.OrderNumber(now.Year(), r.db.yearSeq[now.Year()])
	order.CreatedAt = now
	stored := *order
	stored.Items = append([]entity.OrderItem(nil), order.Items...)
	r.db.orders = append(r.db.orders, stored)
	return nil
}

func (r orderRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i := range r.db.orders {
		if r.db.orders[i].ID == id {
			r.db.orders[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("order %d: %w", id, repository.ErrNotFound)
}

func (r orderRepository) FindByID(ctx context.Context, id int64) (entity.Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, o := range r.db.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return entity.Order{}, fmt.Errorf("order %d: %w", id, repository.ErrNotFound)
}

func (r orderRepository) FindByShopper(ctx context.Context, shopperID string) ([]entity.Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []entity.Order
	for i := len(r.db.orders) - 1; i >= 0; i-- {
		if r.db.orders[i].ShopperID == shopperID {
			out = append(out, r.db.orders[i])
		}
	}
	return out, nil
}

type eventStore struct{ db *DB }

func (s eventStore) SaveEvents(ctx context.Context, streamID string, streamType string, expectedVersion int, events []entity.Event) error {
	if len(events) == 0 {
		return nil
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	stream := s.db.events[streamID]
	if len(stream) != expectedVersion {
		return fmt.Errorf("stream %s at version %d, expected %d: %w", streamID, len(stream), expectedVersion, repository.ErrConcurrency)
	}

	now := s.db.now()
	version := expectedVersion
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", e.EventType(), err)
		}
		version++
		stream = append(stream, entity.EventStoreRecord{
			ID:         uuid.NewString(),
			StreamID:   streamID,
			StreamType: streamType,
			Version:    version,
			EventType:  e.EventType(),
			Payload:    payload,
			CreatedAt:  now,
		})
	}
	s.db.events[streamID] = stream
	return nil
}

func (s eventStore) LoadEvents(ctx context.Context, streamID string) ([]entity.EventStoreRecord, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return append([]entity.EventStoreRecord(nil), s.db.events[streamID]...), nil
}
