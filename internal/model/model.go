// Package model holds the storefront's client-side shapes: the normalized
// cart, store references, products, orders and the signed-in shopper.
package model

import "errors"

var (
	// ErrUnauthenticated is returned by any mutating call made without a
	// signed-in shopper.
	ErrUnauthenticated = errors.New("must sign in")

	// ErrNotFound is returned when the backend has no such record.
	ErrNotFound = errors.New("not found")
)

// Shopper is the identity supplied by the auth collaborator.
type Shopper struct {
	ID    string
	Name  string
	Phone string
	Email string
	Token string
}
