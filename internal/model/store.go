package model

import "strconv"

type storeRefKind uint8

const (
	storeUnresolved storeRefKind = iota
	storeKnown
)

// StoreRef names the partner store that owns a cart item.
//
// It is either Known (id and, when available, name) or Unresolved. Only the
// cart store client builds these; everything downstream asks Resolved()
// instead of probing optional fields.
type StoreRef struct {
	kind storeRefKind
	id   int64
	name string
}

// KnownStore returns a resolved reference. A non-positive id is unresolved.
func KnownStore(id int64, name string) StoreRef {
	if id <= 0 {
		return UnresolvedStore()
	}
	return StoreRef{kind: storeKnown, id: id, name: name}
}

// UnresolvedStore is the placeholder used when ownership could not be
// determined.
func UnresolvedStore() StoreRef { return StoreRef{kind: storeUnresolved} }

// Resolved reports whether the owning store is known.
func (r StoreRef) Resolved() bool { return r.kind == storeKnown }

// ID returns the store id and whether it is known.
func (r StoreRef) ID() (int64, bool) { return r.id, r.kind == storeKnown }

// Name returns the store name, or "" when unknown.
func (r StoreRef) Name() string { return r.name }

// String renders the reference for logs and the CLI.
func (r StoreRef) String() string {
	if r.kind != storeKnown {
		return "unknown store"
	}
	if r.name != "" {
		return r.name
	}
	return "store #" + strconv.FormatInt(r.id, 10)
}

// Store is a partner store as returned by the backend.
type Store struct {
	ID      int64
	Name    string
	Address string
	Phone   string
	Hours   string
}

// Ref converts the store into a resolved StoreRef.
func (s Store) Ref() StoreRef { return KnownStore(s.ID, s.Name) }
