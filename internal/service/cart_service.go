package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// saveAttempts bounds retries when another request appended to the same
// cart stream between our load and save.
const saveAttempts = 3

// CartService keeps shopper carts as event streams.
type CartService struct {
	eventStore repository.EventStore
	products   repository.ProductRepository
	logger     *slog.Logger
}

func NewCartService(eventStore repository.EventStore, products repository.ProductRepository, logger *slog.Logger) *CartService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CartService{eventStore: eventStore, products: products, logger: logger}
}

// GetCart loads the current state of a shopper's cart by replaying its events.
func (s *CartService) GetCart(ctx context.Context, shopperID string) (*entity.CartAggregate, error) {
	cartID := entity.CartStreamID(shopperID)
	records, err := s.eventStore.LoadEvents(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart history: %w", err)
	}

	agg := entity.NewCartAggregate(cartID)
	if err := agg.Rehydrate(records); err != nil {
		return nil, fmt.Errorf("failed to rehydrate cart aggregate: %w", err)
	}
	return agg, nil
}

// mutate loads the cart, asks decide for new events and appends them. A
// concurrent append makes it start over from a fresh load.
func (s *CartService) mutate(ctx context.Context, shopperID string, decide func(*entity.CartAggregate) ([]entity.Event, error)) (*entity.CartAggregate, error) {
	for attempt := 1; ; attempt++ {
		agg, err := s.GetCart(ctx, shopperID)
		if err != nil {
			return nil, err
		}
		events, err := decide(agg)
		if err != nil {
			return nil, err
		}

		err = s.eventStore.SaveEvents(ctx, agg.GetAggregateID(), entity.StreamCart, agg.GetVersion(), events)
		if errors.Is(err, repository.ErrConcurrency) && attempt < saveAttempts {
			s.logger.Warn("Cart changed concurrently, retrying", "shopper_id", shopperID, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to save cart events: %w", err)
		}

		for _, e := range events {
			if err := agg.ApplyEvent(e); err != nil {
				return nil, err
			}
		}
		return agg, nil
	}
}

// AddItem puts quantity boxes of a product into the cart. The price and the
// store are copied from the catalog at this moment.
func (s *CartService) AddItem(ctx context.Context, shopperID string, productID int64, quantity int) (*entity.CartAggregate, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, fmt.Errorf("product %d: %w", productID, ErrProductUnavailable)
	}

	s.logger.Info("Adding item to cart", "shopper_id", shopperID, "product_id", productID, "quantity", quantity)
	return s.mutate(ctx, shopperID, func(agg *entity.CartAggregate) ([]entity.Event, error) {
		want := quantity
		if l, ok := agg.LineForProduct(productID); ok {
			want += l.Quantity
		}
		if want > p.Stock {
			return nil, fmt.Errorf("product %d has %d left, %d wanted: %w", productID, p.Stock, want, repository.ErrInsufficientStock)
		}
		return []entity.Event{entity.ItemAddedToCart{
			CartID:    agg.GetAggregateID(),
			LineID:    agg.NextLineID(),
			ProductID: p.ID,
			StoreID:   p.StoreID,
			Name:      p.Name,
			ImageURL:  p.ImageURL,
			Price:     p.Price,
			Quantity:  quantity,
		}}, nil
	})
}

// UpdateItem sets the quantity of a line. Zero or less removes the line.
func (s *CartService) UpdateItem(ctx context.Context, shopperID string, lineID int64, quantity int) (*entity.CartAggregate, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, shopperID, lineID)
	}
	return s.mutate(ctx, shopperID, func(agg *entity.CartAggregate) ([]entity.Event, error) {
		l, ok := agg.Line(lineID)
		if !ok {
			return nil, ErrLineNotFound
		}
		if quantity > l.Quantity {
			p, err := s.products.FindByID(ctx, l.ProductID)
			if err != nil {
				return nil, err
			}
			if quantity > p.Stock {
				return nil, fmt.Errorf("product %d has %d left, %d wanted: %w", p.ID, p.Stock, quantity, repository.ErrInsufficientStock)
			}
		}
		return []entity.Event{entity.ItemQuantityChanged{CartID: agg.GetAggregateID(), LineID: lineID, Quantity: quantity}}, nil
	})
}

// RemoveItem deletes a line.
func (s *CartService) RemoveItem(ctx context.Context, shopperID string, lineID int64) (*entity.CartAggregate, error) {
	return s.mutate(ctx, shopperID, func(agg *entity.CartAggregate) ([]entity.Event, error) {
		if _, ok := agg.Line(lineID); !ok {
			return nil, ErrLineNotFound
		}
		return []entity.Event{entity.ItemRemovedFromCart{CartID: agg.GetAggregateID(), LineID: lineID}}, nil
	})
}

// Clear deletes every line. Clearing an empty cart records nothing.
func (s *CartService) Clear(ctx context.Context, shopperID string) (*entity.CartAggregate, error) {
	return s.mutate(ctx, shopperID, func(agg *entity.CartAggregate) ([]entity.Event, error) {
		if len(agg.Lines) == 0 {
			return nil, nil
		}
		return []entity.Event{entity.CartCleared{CartID: agg.GetAggregateID()}}, nil
	})
}
