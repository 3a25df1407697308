package backend

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/model"
)

// ErrInvalidQuantity is returned when an add is attempted with quantity < 1.
var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Op         string // "GET /cart"
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: backend returned status %d", e.Op, e.StatusCode)
}

// Unwrap maps well-known statuses onto the model sentinels so callers can
// use errors.Is(err, model.ErrUnauthenticated) and errors.Is(err, model.ErrNotFound).
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return model.ErrUnauthenticated
	case http.StatusNotFound:
		return model.ErrNotFound
	default:
		return nil
	}
}

// NetworkError is a transport failure: the request never produced a response.
type NetworkError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

// Unwrap returns the transport error.
func (e *NetworkError) Unwrap() error { return e.Err }

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, model.ErrNotFound)
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode
	}
	return 0
}

// Message renders err for a shopper: no request paths, just what happened.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var (
		ae *APIError
		ne *NetworkError
	)
	switch {
	case errors.Is(err, model.ErrUnauthenticated):
		return "Please sign in to continue."
	case errors.As(err, &ae) && ae.Message != "":
		return ae.Message
	case errors.As(err, &ae):
		return fmt.Sprintf("The server could not process the request (status %d).", ae.StatusCode)
	case errors.As(err, &ne):
		return "Could not reach the server. Check your connection and try again."
	default:
		return err.Error()
	}
}
