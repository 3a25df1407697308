package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// OrderService places pickup orders and confirms them.
type OrderService struct {
	orders     repository.OrderRepository
	products   repository.ProductRepository
	eventStore repository.EventStore
	publisher  messaging.Publisher
	logger     *slog.Logger
	now        func() time.Time
}

func NewOrderService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	eventStore repository.EventStore,
	publisher messaging.Publisher,
	logger *slog.Logger,
) *OrderService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderService{
		orders:     orders,
		products:   products,
		eventStore: eventStore,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

// PlaceOrder validates the command, prices it from the catalog and stores it
// together with the stock decrement. The OrderPlaced event is then recorded
// and published; failures there are logged because the order already exists.
func (s *OrderService) PlaceOrder(ctx context.Context, cmd *entity.PlaceOrder) (*entity.Order, error) {
	s.logger.Info("Placing order", "shopper_id", cmd.ShopperID, "items", len(cmd.Items))

	method := strings.ToUpper(strings.TrimSpace(cmd.PaymentMethod))
	if method == "" {
		method = entity.PaymentCash
	}
	if method != entity.PaymentCash {
		return nil, ErrPaymentMethod
	}
	if strings.TrimSpace(cmd.CustomerName) == "" || strings.TrimSpace(cmd.CustomerPhone) == "" {
		return nil, ErrMissingCustomer
	}
	if len(cmd.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	order := &entity.Order{
		ShopperID:     cmd.ShopperID,
		Status:        entity.OrderStatusPlaced,
		CustomerName:  strings.TrimSpace(cmd.CustomerName),
		CustomerPhone: strings.TrimSpace(cmd.CustomerPhone),
		PaymentMethod: method,
		Comment:       strings.TrimSpace(cmd.Comment),
		Subtotal:      decimal.Zero,
	}
	for _, it := range cmd.Items {
		if it.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
		p, err := s.products.FindByID(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		if !p.Active {
			return nil, fmt.Errorf("product %d: %w", p.ID, ErrProductUnavailable)
		}
		if p.Stock < it.Quantity {
			return nil, fmt.Errorf("product %d has %d left, %d requested: %w", p.ID, p.Stock, it.Quantity, repository.ErrInsufficientStock)
		}
		if !it.UnitPrice.IsZero() && !it.UnitPrice.Equal(p.Price) {
			s.logger.Warn("Order price differs from catalog, using catalog", "product_id", p.ID, "requested", it.UnitPrice.String(), "catalog", p.Price.String())
		}
		if order.StoreID == 0 {
			order.StoreID = p.StoreID
		}
		item := entity.OrderItem{ProductID: p.ID, Name: p.Name, UnitPrice: p.Price, Quantity: it.Quantity}
		order.Items = append(order.Items, item)
		order.Subtotal = order.Subtotal.Add(item.LineTotal())
	}
	order.Total = order.Subtotal

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	placed := entity.OrderPlaced{
		OrderID:     order.ID,
		OrderNumber: order.Number,
		ShopperID:   order.ShopperID,
		Total:       order.Total,
		PlacedAt:    order.CreatedAt,
	}
	if err := s.eventStore.SaveEvents(ctx, entity.OrderStreamID(order.ID), entity.StreamOrder, 0, []entity.Event{placed}); err != nil {
		s.logger.Error("Failed to save OrderPlaced event", "order_id", order.ID, "err", err)
	}
	if err := s.publisher.PublishEvent(ctx, messaging.TopicOrdersPlaced, strconv.FormatInt(order.ID, 10), placed); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", "order_id", order.ID, "err", err)
	}

	s.logger.Info("Order placed", "order_id", order.ID, "order_number", order.Number, "total", order.Total.String())
	return order, nil
}

// HandleOrderPlaced confirms a placed order. Redelivered events are ignored.
func (s *OrderService) HandleOrderPlaced(ctx context.Context, event *entity.OrderPlaced) error {
	s.logger.Info("Confirming order", "order_id", event.OrderID)

	streamID := entity.OrderStreamID(event.OrderID)
	records, err := s.eventStore.LoadEvents(ctx, streamID)
	if err != nil {
		return fmt.Errorf("failed to load order events: %w", err)
	}

	aggregate := entity.NewOrderAggregate(streamID)
	if err := aggregate.Rehydrate(records); err != nil {
		return fmt.Errorf("failed to rehydrate order aggregate: %w", err)
	}
	if aggregate.Status == entity.OrderStatusConfirmed {
		s.logger.Info("Order already confirmed", "order_id", event.OrderID)
		return nil
	}

	confirmed := entity.OrderConfirmed{OrderID: event.OrderID, ConfirmedAt: s.now()}
	var events []entity.Event
	if aggregate.Status == "" {
		// The placement event was never stored; record it before confirming.
		events = append(events, *event)
	}
	events = append(events, confirmed)

	if err := s.eventStore.SaveEvents(ctx, streamID, entity.StreamOrder, aggregate.GetVersion(), events); err != nil {
		return fmt.Errorf("failed to save OrderConfirmed event: %w", err)
	}
	if err := s.orders.UpdateStatus(ctx, event.OrderID, entity.OrderStatusConfirmed); err != nil {
		return fmt.Errorf("failed to update order projection: %w", err)
	}

	if err := s.publisher.PublishEvent(ctx, messaging.TopicOrdersConfirmed, strconv.FormatInt(event.OrderID, 10), confirmed); err != nil {
		s.logger.Error("Failed to publish OrderConfirmed", "order_id", event.OrderID, "err", err)
	}
	s.logger.Info("Order confirmed", "order_id", event.OrderID)
	return nil
}

// OrderPlacedHandler decodes orders.placed messages for HandleOrderPlaced.
func (s *OrderService) OrderPlacedHandler() messaging.Handler {
	return func(ctx context.Context, payload []byte) error {
		var event entity.OrderPlaced
		if err := json.Unmarshal(payload, &event); err != nil {
			return fmt.Errorf("failed to unmarshal OrderPlaced event: %w", err)
		}
		return s.HandleOrderPlaced(ctx, &event)
	}
}

// MyOrders lists a shopper's orders, newest first.
func (s *OrderService) MyOrders(ctx context.Context, shopperID string) ([]entity.Order, error) {
	return s.orders.FindByShopper(ctx, shopperID)
}
