package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
)

// InitDB opens the database, checks it is reachable and creates the schema.
func InitDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	slog.Info("Database connected and migrated")
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS stores (
	id BIGINT PRIMARY KEY,
	name TEXT NOT NULL,
	address TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	hours TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS products (
	id BIGINT PRIMARY KEY,
	store_id BIGINT NOT NULL REFERENCES stores(id),
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	price NUMERIC(12,2) NOT NULL,
	original_price NUMERIC(12,2) NOT NULL DEFAULT 0,
	image_url TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	stock INT NOT NULL DEFAULT 0 CHECK (stock >= 0),
	active BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS orders (
	id BIGSERIAL PRIMARY KEY,
	number TEXT UNIQUE,
	shopper_id TEXT NOT NULL,
	store_id BIGINT NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	customer_name TEXT NOT NULL,
	customer_phone TEXT NOT NULL,
	payment_method TEXT NOT NULL,
	comment TEXT NOT NULL DEFAULT '',
	subtotal NUMERIC(12,2) NOT NULL,
	total NUMERIC(12,2) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS orders_shopper_idx ON orders (shopper_id, created_at DESC);

CREATE TABLE IF NOT EXISTS order_items (
	id BIGSERIAL PRIMARY KEY,
	order_id BIGINT NOT NULL REFERENCES orders(id),
	product_id BIGINT NOT NULL,
	name TEXT NOT NULL,
	unit_price NUMERIC(12,2) NOT NULL,
	quantity INT NOT NULL CHECK (quantity > 0)
);

CREATE TABLE IF NOT EXISTS events (
	id UUID PRIMARY KEY,
	stream_id TEXT NOT NULL,
	stream_type TEXT NOT NULL,
	version INT NOT NULL,
	event_type TEXT NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (stream_id, version)
);
`
