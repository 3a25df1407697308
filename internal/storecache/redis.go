package storecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/model"
)

// DefaultNamespace prefixes every key written by Redis.
const DefaultNamespace = "storefront:store-owner"

// Redis is a Cache shared between storefront processes.
type Redis struct {
	client    redis.UniversalClient
	namespace string
	ttl       time.Duration
	logger    *slog.Logger
}

type redisEntry struct {
	StoreID   int64  `json:"store_id"`
	StoreName string `json:"store_name,omitempty"`
}

// NewRedisFromURL parses url (redis://host:port/db) and pings the server.
func NewRedisFromURL(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	if url == "" {
		return nil, errors.New("redis URL is required")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewRedis(client, ttl), nil
}

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	return &Redis{
		client:    client,
		namespace: DefaultNamespace,
		ttl:       ttl,
		logger:    slog.Default(),
	}
}

// SetLogger replaces the logger.
func (r *Redis) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// SetNamespace changes the key prefix.
func (r *Redis) SetNamespace(ns string) {
	if ns != "" {
		r.namespace = ns
	}
}

func (r *Redis) key(productID int64) string {
	return r.namespace + ":" + strconv.FormatInt(productID, 10)
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, productID int64) (model.StoreRef, bool, error) {
	raw, err := r.client.Get(ctx, r.key(productID)).Bytes()
	if errors.Is(err, redis.Nil) {
		r.logger.Debug("Store cache miss", "product_id", productID)
		return model.StoreRef{}, false, nil
	}
	if err != nil {
		return model.StoreRef{}, false, fmt.Errorf("failed to read store owner of product %d: %w", productID, err)
	}

	var entry redisEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return model.StoreRef{}, false, fmt.Errorf("failed to decode store owner of product %d: %w", productID, err)
	}
	ref := model.KnownStore(entry.StoreID, entry.StoreName)
	if !ref.Resolved() {
		return model.StoreRef{}, false, nil
	}
	r.logger.Debug("Store cache hit", "product_id", productID, "store", ref.String())
	return ref, true, nil
}

// Put implements Cache. Unresolved references are never stored.
func (r *Redis) Put(ctx context.Context, productID int64, ref model.StoreRef) error {
	id, ok := ref.ID()
	if !ok {
		return nil
	}
	payload, err := json.Marshal(redisEntry{StoreID: id, StoreName: ref.Name()})
	if err != nil {
		return fmt.Errorf("failed to encode store owner: %w", err)
	}
	if err := r.client.Set(ctx, r.key(productID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write store owner of product %d: %w", productID, err)
	}
	return nil
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
