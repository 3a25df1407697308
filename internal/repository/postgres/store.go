package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

type storeRepository struct {
	db *sql.DB
}

// NewStoreRepository creates a new StoreRepository backed by Postgres.
func NewStoreRepository(db *sql.DB) repository.StoreRepository {
	return &storeRepository{db: db}
}

func (r *storeRepository) FindByID(ctx context.Context, id int64) (entity.Store, error) {
	var s entity.Store
	err := r.db.QueryRowContext(ctx, "SELECT id, name, address, phone, hours FROM stores WHERE id = $1", id).
		Scan(&s.ID, &s.Name, &s.Address, &s.Phone, &s.Hours)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Store{}, fmt.Errorf("store %d: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return entity.Store{}, fmt.Errorf("failed to query store %d: %w", id, err)
	}
	return s, nil
}

func (r *storeRepository) Seed(ctx context.Context, stores []entity.Store) error {
	for _, s := range stores {
		_, err := r.db.ExecContext(ctx,
			"INSERT INTO stores (id, name, address, phone, hours) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING",
			s.ID, s.Name, s.Address, s.Phone, s.Hours,
		)
		if err != nil {
			return fmt.Errorf("failed to seed store %d: %w", s.ID, err)
		}
	}
	return nil
}
