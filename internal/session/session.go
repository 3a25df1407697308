// Package session is the storefront's view of the auth collaborator: who is
// signed in, and a notification when that changes.
package session

import (
	"sync"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/model"
)

// Provider answers whether a shopper is signed in.
type Provider interface {
	Current() (model.Shopper, bool)
}

// ChangeFunc is called with the previous and the new identity. A nil pointer
// means nobody is signed in.
type ChangeFunc func(prev, next *model.Shopper)

// Session holds the signed-in shopper. Instances are created per storefront
// (or per test) and passed to the components that need them.
type Session struct {
	mu        sync.Mutex
	shopper   *model.Shopper
	listeners map[int]ChangeFunc
	nextID    int
}

// New returns a signed-out session.
func New() *Session {
	return &Session{listeners: make(map[int]ChangeFunc)}
}

// Current implements Provider.
func (s *Session) Current() (model.Shopper, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shopper == nil {
		return model.Shopper{}, false
	}
	return *s.shopper, true
}

// SignIn replaces the current identity and notifies subscribers.
func (s *Session) SignIn(shopper model.Shopper) {
	next := shopper
	s.swap(&next)
}

// SignOut clears the identity and notifies subscribers.
func (s *Session) SignOut() {
	s.swap(nil)
}

// Subscribe registers fn for identity changes and returns the function that
// removes it. Listeners run synchronously on the goroutine that changed the
// identity, outside the session lock.
func (s *Session) Subscribe(fn ChangeFunc) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Session) swap(next *model.Shopper) {
	s.mu.Lock()
	prev := s.shopper
	s.shopper = next
	fns := make([]ChangeFunc, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(copyOf(prev), copyOf(next))
	}
}

func copyOf(s *model.Shopper) *model.Shopper {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// SameIdentity reports whether two identities refer to the same shopper.
func SameIdentity(a, b *model.Shopper) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID
}
