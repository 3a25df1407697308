package service

import (
	"errors"
	"fmt"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

var (
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrProductUnavailable = errors.New("product is not available")
	ErrLineNotFound       = fmt.Errorf("cart line: %w", repository.ErrNotFound)
	ErrEmptyOrder         = errors.New("order must have at least one item")
	ErrPaymentMethod      = errors.New("only cash payment is accepted")
	ErrMissingCustomer    = errors.New("customer name and phone are required")
)
