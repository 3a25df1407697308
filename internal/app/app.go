// Package app assembles the development backend from its configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/config"
	delivery "github.com/egannguyen/go-kafka-ecommerce/storefront/internal/delivery/http"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging/kafka"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/memory"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/postgres"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/seed"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
)

// Broker is both ends of the event bus.
type Broker interface {
	messaging.Publisher
	messaging.Subscriber
}

// Storage is the set of repositories the services run on.
type Storage struct {
	Stores   repository.StoreRepository
	Products repository.ProductRepository
	Orders   repository.OrderRepository
	Events   repository.EventStore
}

// MemoryStorage returns storage backed by db.
func MemoryStorage(db *memory.DB) Storage {
	return Storage{Stores: db.Stores(), Products: db.Products(), Orders: db.Orders(), Events: db.Events()}
}

// App is a wired development backend.
type App struct {
	Cart    *service.CartService
	Catalog *service.CatalogService
	Orders  *service.OrderService

	broker        Broker
	consumerGroup string
	logger        *slog.Logger
	closers       []func() error
}

// New wires services over storage and broker and seeds the catalog.
func New(ctx context.Context, storage Storage, broker Broker, catalog seed.Catalog, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := seed.Apply(ctx, catalog, storage.Stores, storage.Products); err != nil {
		return nil, fmt.Errorf("failed to seed catalog: %w", err)
	}
	return &App{
		Cart:          service.NewCartService(storage.Events, storage.Products, logger),
		Catalog:       service.NewCatalogService(storage.Products, storage.Stores),
		Orders:        service.NewOrderService(storage.Orders, storage.Products, storage.Events, broker, logger),
		broker:        broker,
		consumerGroup: "boxapi-confirmations",
		logger:        logger,
	}, nil
}

// NewInMemory returns a backend on in-memory storage with the default
// catalog and an in-process broker.
func NewInMemory(ctx context.Context, logger *slog.Logger) (*App, *memory.DB, error) {
	catalog, err := seed.Default()
	if err != nil {
		return nil, nil, err
	}
	db := memory.New()
	a, err := New(ctx, MemoryStorage(db), messaging.NewInProc(logger), catalog, logger)
	if err != nil {
		return nil, nil, err
	}
	return a, db, nil
}

// FromConfig builds the backend cfg describes: the storage backend, the
// broker (Kafka when brokers are configured, in-process otherwise) and
// the default catalog.
func FromConfig(ctx context.Context, cfg *config.ServerConfig, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var closers []func() error

	var storage Storage
	switch cfg.Storage {
	case config.StoragePostgres:
		db, err := postgres.InitDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		closers = append(closers, db.Close)
		repos := postgres.NewRepositories(db)
		storage = Storage{Stores: repos.Stores, Products: repos.Products, Orders: repos.Orders, Events: repos.Events}
		logger.Info("Using Postgres storage")
	default:
		storage = MemoryStorage(memory.New())
		logger.Info("Using in-memory storage")
	}

	var broker Broker
	if len(cfg.KafkaBrokers) > 0 {
		k := kafka.NewKafkaBroker(cfg.KafkaBrokers, logger)
		closers = append(closers, k.Close)
		broker = k
		logger.Info("Using Kafka broker", "brokers", cfg.KafkaBrokers)
	} else {
		broker = messaging.NewInProc(logger)
		logger.Info("Using in-process broker")
	}

	catalog, err := seed.Default()
	if err != nil {
		closeAll(closers)
		return nil, err
	}
	a, err := New(ctx, storage, broker, catalog, logger)
	if err != nil {
		closeAll(closers)
		return nil, err
	}
	if cfg.ConsumerGroup != "" {
		a.consumerGroup = cfg.ConsumerGroup
	}
	a.closers = closers
	return a, nil
}

// Handler returns the HTTP API with CORS and tracing applied.
func (a *App) Handler() http.Handler {
	h := delivery.NewHandler(a.Cart, a.Catalog, a.Orders, a.logger)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return otelhttp.NewHandler(delivery.EnableCORS(mux), "boxapi")
}

// RunConsumers confirms placed orders until ctx is done.
func (a *App) RunConsumers(ctx context.Context) {
	a.logger.Info("Consuming placed orders", "topic", messaging.TopicOrdersPlaced, "group", a.consumerGroup)
	a.broker.Consume(ctx, messaging.TopicOrdersPlaced, a.consumerGroup, a.Orders.OrderPlacedHandler())
}

// Close releases the database pool and broker connections.
func (a *App) Close() error {
	return closeAll(a.closers)
}

func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
