package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

const productColumns = "id, store_id, name, description, price, original_price, image_url, category, stock, active"

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new ProductRepository backed by Postgres.
func NewProductRepository(db *sql.DB) repository.ProductRepository {
	return &productRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (entity.Product, error) {
	var p entity.Product
	err := row.Scan(&p.ID, &p.StoreID, &p.Name, &p.Description, &p.Price, &p.OriginalPrice, &p.ImageURL, &p.Category, &p.Stock, &p.Active)
	return p, err
}

func (r *productRepository) FindAll(ctx context.Context) ([]entity.Product, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+productColumns+" FROM products ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *productRepository) FindByID(ctx context.Context, id int64) (entity.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Product{}, fmt.Errorf("product %d: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return entity.Product{}, fmt.Errorf("failed to query product %d: %w", id, err)
	}
	return p, nil
}

func (r *productRepository) SetStock(ctx context.Context, id int64, stock int) error {
	res, err := r.db.ExecContext(ctx, "UPDATE products SET stock = $1 WHERE id = $2", stock, id)
	if err != nil {
		return fmt.Errorf("failed to update stock of product %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("product %d: %w", id, repository.ErrNotFound)
	}
	return nil
}

func (r *productRepository) Seed(ctx context.Context, products []entity.Product) error {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&count); err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, p := range products {
		_, err := r.db.ExecContext(ctx,
			"INSERT INTO products ("+productColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)",
			p.ID, p.StoreID, p.Name, p.Description, p.Price, p.OriginalPrice, p.ImageURL, p.Category, p.Stock, p.Active,
		)
		if err != nil {
			return fmt.Errorf("failed to seed product %d: %w", p.ID, err)
		}
	}
	return nil
}
