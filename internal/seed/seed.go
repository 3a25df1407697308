// Package seed provides the demo catalog the development backend starts with.
package seed

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is a set of stores and their products.
type Catalog struct {
	Stores   []entity.Store   `yaml:"stores"`
	Products []entity.Product `yaml:"products"`
}

// Default returns the embedded demo catalog.
func Default() (Catalog, error) {
	return Parse(defaultCatalog)
}

// Parse decodes a YAML catalog and checks that every product belongs to a
// listed store.
func Parse(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("failed to parse catalog: %w", err)
	}
	stores := make(map[int64]bool, len(c.Stores))
	for _, s := range c.Stores {
		stores[s.ID] = true
	}
	for _, p := range c.Products {
		if !stores[p.StoreID] {
			return Catalog{}, fmt.Errorf("product %d refers to unknown store %d", p.ID, p.StoreID)
		}
		if p.Price.IsNegative() || p.Stock < 0 {
			return Catalog{}, fmt.Errorf("product %d has a negative price or stock", p.ID)
		}
	}
	return c, nil
}

// Apply inserts the catalog into empty repositories.
func Apply(ctx context.Context, c Catalog, stores repository.StoreRepository, products repository.ProductRepository) error {
	if err := stores.Seed(ctx, c.Stores); err != nil {
		return fmt.Errorf("failed to seed stores: %w", err)
	}
	if err := products.Seed(ctx, c.Products); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}
	return nil
}
