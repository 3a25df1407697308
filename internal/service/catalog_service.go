package service

import (
	"context"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// CatalogService answers product and store lookups.
type CatalogService struct {
	products repository.ProductRepository
	stores   repository.StoreRepository
}

func NewCatalogService(products repository.ProductRepository, stores repository.StoreRepository) *CatalogService {
	return &CatalogService{products: products, stores: stores}
}

// Products returns all products, active or not.
func (s *CatalogService) Products(ctx context.Context) ([]entity.Product, error) {
	return s.products.FindAll(ctx)
}

// Product returns one product.
func (s *CatalogService) Product(ctx context.Context, id int64) (entity.Product, error) {
	return s.products.FindByID(ctx, id)
}

// Store returns one store.
func (s *CatalogService) Store(ctx context.Context, id int64) (entity.Store, error) {
	return s.stores.FindByID(ctx, id)
}

// SetStock records what a store reports as left of a product.
func (s *CatalogService) SetStock(ctx context.Context, id int64, stock int) error {
	if stock < 0 {
		return ErrInvalidQuantity
	}
	return s.products.SetStock(ctx, id, stock)
}
