package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/api"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/model"
)

// FetchCart returns the authoritative cart of the signed-in shopper.
func (c *Client) FetchCart(ctx context.Context) (model.Cart, error) {
	return c.cartCall(ctx, request{method: http.MethodGet, path: "/cart", auth: true})
}

// AddItem adds quantity units of a product and returns the new cart.
func (c *Client) AddItem(ctx context.Context, productID int64, quantity int) (model.Cart, error) {
	if quantity < 1 {
		return model.Cart{}, ErrInvalidQuantity
	}
	return c.cartCall(ctx, request{
		method: http.MethodPost,
		path:   "/cart/items",
		body:   api.AddItemRequest{ProductID: productID, Quantity: quantity},
		auth:   true,
	})
}

// UpdateItem sets the quantity of a line. A quantity of zero or less removes
// the line, exactly as RemoveItem does.
func (c *Client) UpdateItem(ctx context.Context, itemID int64, quantity int) (model.Cart, error) {
	if quantity <= 0 {
		return c.RemoveItem(ctx, itemID)
	}
	return c.cartCall(ctx, request{
		method: http.MethodPut,
		path:   "/cart/items/" + strconv.FormatInt(itemID, 10),
		query:  url.Values{"quantity": []string{strconv.Itoa(quantity)}},
		auth:   true,
	})
}

// RemoveItem deletes a line and returns the new cart.
func (c *Client) RemoveItem(ctx context.Context, itemID int64) (model.Cart, error) {
	return c.cartCall(ctx, request{
		method: http.MethodDelete,
		path:   "/cart/items/" + strconv.FormatInt(itemID, 10),
		auth:   true,
	})
}

// Clear empties the cart.
func (c *Client) Clear(ctx context.Context) (model.Cart, error) {
	return c.cartCall(ctx, request{method: http.MethodDelete, path: "/cart", auth: true})
}

func (c *Client) cartCall(ctx context.Context, r request) (model.Cart, error) {
	var raw api.Cart
	if err := c.do(ctx, r, &raw); err != nil {
		return model.Cart{}, err
	}
	return c.normalizeCart(ctx, raw), nil
}

// normalizeCart turns backend records into client items. Records with a
// non-positive quantity are dropped: such a line must not exist.
func (c *Client) normalizeCart(ctx context.Context, raw api.Cart) model.Cart {
	cart := model.Cart{Items: make([]model.Item, 0, len(raw.Items)), Total: raw.Total}
	for _, rec := range raw.Items {
		if rec.Quantity <= 0 {
			c.logger.Warn("Dropping cart record with non-positive quantity",
				"item_id", rec.ID,
				"product_id", rec.ProductID,
				"quantity", rec.Quantity,
			)
			continue
		}
		cart.Items = append(cart.Items, model.Item{
			ID:        rec.ID,
			ProductID: rec.ProductID,
			Name:      rec.ProductName,
			UnitPrice: rec.Price,
			Quantity:  rec.Quantity,
			ImageURL:  rec.ImageURL,
			Store:     c.resolveStore(ctx, rec),
		})
	}
	if cart.Total.IsZero() && !cart.Empty() {
		cart.Total = cart.Subtotal()
	}
	return cart
}

// resolveStore determines the owning store of a cart record. Records without
// a store id cost one product lookup, remembered per product id. Any failure
// yields an unresolved reference rather than an error: store ownership is
// informational and must never block the cart.
func (c *Client) resolveStore(ctx context.Context, rec api.CartItem) model.StoreRef {
	if rec.StoreID != nil && *rec.StoreID > 0 {
		ref := model.KnownStore(*rec.StoreID, rec.StoreName)
		if err := c.stores.Put(ctx, rec.ProductID, ref); err != nil {
			c.logger.Warn("Failed to cache store owner", "product_id", rec.ProductID, "err", err)
		}
		return ref
	}

	ref, ok, err := c.stores.Get(ctx, rec.ProductID)
	if err != nil {
		c.logger.Warn("Store cache lookup failed", "product_id", rec.ProductID, "err", err)
	} else if ok {
		return ref
	}

	product, err := c.Product(ctx, rec.ProductID)
	if err != nil {
		c.logger.Warn("Could not resolve store owner", "product_id", rec.ProductID, "err", err)
		return model.UnresolvedStore()
	}
	if !product.Store.Resolved() {
		return model.UnresolvedStore()
	}
	if err := c.stores.Put(ctx, rec.ProductID, product.Store); err != nil {
		c.logger.Warn("Failed to cache store owner", "product_id", rec.ProductID, "err", err)
	}
	return product.Store
}
