// Package storecache remembers which partner store owns a product, so the
// cart store client does not repeat the per-product lookup for cart lines
// that arrive without a store id.
//
// The cache is advisory. Implementations report errors, and callers treat an
// error exactly like a miss.
package storecache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/model"
)

// Cache maps product ids to the owning store.
type Cache interface {
	Get(ctx context.Context, productID int64) (model.StoreRef, bool, error)
	Put(ctx context.Context, productID int64, ref model.StoreRef) error
}

// Memory is a process-local Cache with an optional TTL.
type Memory struct {
	mu      sync.RWMutex
	entries map[int64]memoryEntry
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

type memoryEntry struct {
	ref       model.StoreRef
	expiresAt time.Time
}

// NewMemory returns an empty cache. A zero ttl keeps entries for the lifetime
// of the process.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries: make(map[int64]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
		logger:  slog.Default(),
	}
}

// SetLogger replaces the logger.
func (m *Memory) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, productID int64) (model.StoreRef, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[productID]
	m.mu.RUnlock()

	if !ok {
		m.logger.Debug("Store cache miss", "product_id", productID)
		return model.StoreRef{}, false, nil
	}
	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		m.logger.Debug("Store cache entry expired", "product_id", productID)
		m.mu.Lock()
		delete(m.entries, productID)
		m.mu.Unlock()
		return model.StoreRef{}, false, nil
	}
	m.logger.Debug("Store cache hit", "product_id", productID, "store", entry.ref.String())
	return entry.ref, true, nil
}

// Put implements Cache. Unresolved references are never stored.
func (m *Memory) Put(_ context.Context, productID int64, ref model.StoreRef) error {
	if !ref.Resolved() {
		return nil
	}
	entry := memoryEntry{ref: ref}
	if m.ttl > 0 {
		entry.expiresAt = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	m.entries[productID] = entry
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
