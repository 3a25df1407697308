// Package cart keeps the storefront's in-memory mirror of the backend cart.
//
// The Synchronizer is write-through: every mutation goes to the backend and
// the cart the backend answers with replaces the local copy. There is no
// optimistic merge. Failures are absorbed into the synchronizer state so a
// caller can keep rendering the last good cart next to an error message.
package cart

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/backend"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/model"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/session"
)

var (
	// ErrBusy is returned when a mutation is attempted while another cart
	// call is still in flight. Callers are expected to disable their
	// controls while Loading() is true; this is the backstop.
	ErrBusy = errors.New("another cart update is in progress")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("cart synchronizer is closed")

	// ErrShopperChanged is returned when a call made under PinShopper finds
	// another shopper signed in.
	ErrShopperChanged = errors.New("signed-in shopper changed")
)

type pinKey struct{}

// PinShopper returns a context whose cart calls only go through while
// shopperID is the signed-in shopper.
func PinShopper(ctx context.Context, shopperID string) context.Context {
	return context.WithValue(ctx, pinKey{}, shopperID)
}

// Backend is the part of the cart store client the synchronizer needs.
type Backend interface {
	FetchCart(ctx context.Context) (model.Cart, error)
	AddItem(ctx context.Context, productID int64, quantity int) (model.Cart, error)
	UpdateItem(ctx context.Context, itemID int64, quantity int) (model.Cart, error)
	RemoveItem(ctx context.Context, itemID int64) (model.Cart, error)
	Clear(ctx context.Context) (model.Cart, error)
}

// Identity is the auth collaborator: who is signed in, and change events.
type Identity interface {
	session.Provider
	Subscribe(fn session.ChangeFunc) (unsubscribe func())
}

// State is a snapshot of the synchronizer.
type State struct {
	Cart    *model.Cart // nil until a cart was loaded, and after sign-out
	Loading bool
	Err     error
	Error   string // Err rendered for the shopper
}

// Synchronizer mirrors the backend cart of the signed-in shopper.
type Synchronizer struct {
	backend  Backend
	identity Identity
	logger   *slog.Logger

	mu          sync.Mutex
	cart        *model.Cart
	loading     bool
	err         error
	gen         uint64 // bumped on identity change and Close; stale responses compare against it
	closed      bool
	ctx         context.Context
	unsubscribe func()
	observers   map[int]func(State)
	nextObs     int
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synchronizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSynchronizer returns an unmounted synchronizer with no cart.
func NewSynchronizer(b Backend, identity Identity, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		backend:   b,
		identity:  identity,
		logger:    slog.Default(),
		ctx:       context.Background(),
		observers: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mount derives the cart for the current identity and starts following
// identity changes. ctx is used for fetches triggered by those changes.
func (s *Synchronizer) Mount(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.unsubscribe != nil {
		s.mu.Unlock()
		return nil
	}
	s.ctx = ctx
	s.unsubscribe = s.identity.Subscribe(s.onIdentityChange)
	s.mu.Unlock()

	if _, ok := s.identity.Current(); !ok {
		s.reset()
		return nil
	}
	return s.run(ctx, "fetch", true, s.backend.FetchCart)
}

// Close stops following identity changes. Responses that arrive afterwards
// are dropped and observers are no longer called.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.gen++
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.observers = make(map[int]func(State))
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (s *Synchronizer) onIdentityChange(prev, next *model.Shopper) {
	if session.SameIdentity(prev, next) {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.gen++
	ctx := s.ctx
	s.mu.Unlock()

	if next == nil {
		s.logger.Info("Shopper signed out, dropping cart")
		s.reset()
		return
	}
	s.logger.Info("Shopper changed, fetching cart", "shopper_id", next.ID)
	s.run(ctx, "fetch", true, s.backend.FetchCart)
}

func (s *Synchronizer) reset() {
	s.mu.Lock()
	s.cart = nil
	s.loading = false
	s.err = nil
	s.mu.Unlock()
	s.notify()
}

// Refresh re-fetches the cart from the backend.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	return s.run(ctx, "fetch", false, s.backend.FetchCart)
}

// AddItem adds quantity units of a product.
func (s *Synchronizer) AddItem(ctx context.Context, productID int64, quantity int) error {
	return s.run(ctx, "add", false, func(ctx context.Context) (model.Cart, error) {
		return s.backend.AddItem(ctx, productID, quantity)
	})
}

// UpdateItem sets the quantity of a line; zero or less removes it.
func (s *Synchronizer) UpdateItem(ctx context.Context, itemID int64, quantity int) error {
	return s.run(ctx, "update", false, func(ctx context.Context) (model.Cart, error) {
		return s.backend.UpdateItem(ctx, itemID, quantity)
	})
}

// RemoveItem deletes a line.
func (s *Synchronizer) RemoveItem(ctx context.Context, itemID int64) error {
	return s.run(ctx, "remove", false, func(ctx context.Context) (model.Cart, error) {
		return s.backend.RemoveItem(ctx, itemID)
	})
}

// ClearCart empties the cart.
func (s *Synchronizer) ClearCart(ctx context.Context) error {
	return s.run(ctx, "clear", false, s.backend.Clear)
}

// run executes one backend call. force lets identity-driven fetches start
// while an older call is still in flight; that older call is stale by then.
func (s *Synchronizer) run(ctx context.Context, op string, force bool, call func(context.Context) (model.Cart, error)) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	shopper, ok := s.identity.Current()
	if !ok {
		s.err = model.ErrUnauthenticated
		s.mu.Unlock()
		s.notify()
		return model.ErrUnauthenticated
	}
	if want, pinned := ctx.Value(pinKey{}).(string); pinned && want != shopper.ID {
		s.mu.Unlock()
		return ErrShopperChanged
	}
	if s.loading && !force {
		s.mu.Unlock()
		return ErrBusy
	}
	s.loading = true
	s.err = nil
	gen := s.gen
	s.mu.Unlock()
	s.notify()

	cart, err := call(ctx)

	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		s.logger.Debug("Dropping stale cart response", "op", op)
		return err
	}
	s.loading = false
	if err != nil {
		s.err = err
		s.mu.Unlock()
		s.logger.Error("Cart call failed", "op", op, "err", err)
		s.notify()
		return err
	}
	s.cart = &cart
	s.mu.Unlock()

	s.logger.Info("Cart synchronized", "op", op, "lines", cart.Len(), "items", cart.ItemCount())
	s.notify()
	return nil
}

// Cart returns a copy of the current cart and whether one is loaded.
func (s *Synchronizer) Cart() (model.Cart, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cart == nil {
		return model.Cart{}, false
	}
	return s.cart.Clone(), true
}

// Items returns the current lines.
func (s *Synchronizer) Items() []model.Item {
	c, _ := s.Cart()
	return c.Items
}

// ItemCount returns the total quantity in the cart.
func (s *Synchronizer) ItemCount() int {
	c, _ := s.Cart()
	return c.ItemCount()
}

// Subtotal returns the sum of line totals.
func (s *Synchronizer) Subtotal() decimal.Decimal {
	c, _ := s.Cart()
	return c.Subtotal()
}

// Loading reports whether a backend call is in flight.
func (s *Synchronizer) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the error of the last call, or nil.
func (s *Synchronizer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// State returns a snapshot of the synchronizer.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Synchronizer) stateLocked() State {
	st := State{Loading: s.loading, Err: s.err, Error: backend.Message(s.err)}
	if s.cart != nil {
		c := s.cart.Clone()
		st.Cart = &c
	}
	return st
}

// Subscribe registers fn to receive a snapshot after every state change.
func (s *Synchronizer) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *Synchronizer) notify() {
	s.mu.Lock()
	st := s.stateLocked()
	fns := make([]func(State), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}
