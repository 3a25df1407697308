package backend

import (
	"context"
	"net/http"
	"strconv"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/api"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/model"
)

// Product fetches the live record of a product. A missing product is
// reported as an error matching model.ErrNotFound.
func (c *Client) Product(ctx context.Context, id int64) (model.Product, error) {
	var raw api.Product
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/products/" + strconv.FormatInt(id, 10),
	}, &raw)
	if err != nil {
		return model.Product{}, err
	}
	return model.Product{
		ID:            raw.ID,
		Name:          raw.Name,
		Price:         raw.Price,
		OriginalPrice: raw.OriginalPrice,
		ImageURL:      raw.ImageURL,
		Active:        raw.Active,
		StockQuantity: raw.StockQuantity,
		Store:         model.KnownStore(raw.StoreID, raw.StoreName),
	}, nil
}

// Store fetches a partner store.
func (c *Client) Store(ctx context.Context, id int64) (model.Store, error) {
	var raw api.Store
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/stores/" + strconv.FormatInt(id, 10),
	}, &raw)
	if err != nil {
		return model.Store{}, err
	}
	return model.Store{
		ID:      raw.ID,
		Name:    raw.Name,
		Address: raw.Address,
		Phone:   raw.Phone,
		Hours:   raw.Hours,
	}, nil
}
