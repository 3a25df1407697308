package backend

import (
	"context"
	"net/http"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/api"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/model"
)

// CreateOrder submits an order built from the cart.
func (c *Client) CreateOrder(ctx context.Context, req model.OrderRequest) (model.Order, error) {
	body := api.CreateOrderRequest{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		PaymentMethod: string(req.PaymentMethod),
		Comment:       req.Comment,
		Items:         make([]api.OrderItemRequest, 0, len(req.Items)),
	}
	for _, it := range req.Items {
		body.Items = append(body.Items, api.OrderItemRequest{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	var raw api.Order
	if err := c.do(ctx, request{method: http.MethodPost, path: "/orders", body: body, auth: true}, &raw); err != nil {
		return model.Order{}, err
	}
	return orderFromAPI(raw), nil
}

// MyOrders lists the orders of the signed-in shopper, newest first.
func (c *Client) MyOrders(ctx context.Context) ([]model.Order, error) {
	var raw []api.Order
	if err := c.do(ctx, request{method: http.MethodGet, path: "/orders/my-orders", auth: true}, &raw); err != nil {
		return nil, err
	}
	orders := make([]model.Order, 0, len(raw))
	for _, o := range raw {
		orders = append(orders, orderFromAPI(o))
	}
	return orders, nil
}

func orderFromAPI(raw api.Order) model.Order {
	o := model.Order{
		ID:            raw.ID,
		Number:        raw.OrderNumber,
		Status:        raw.Status,
		CustomerName:  raw.CustomerName,
		CustomerPhone: raw.CustomerPhone,
		PaymentMethod: model.PaymentMethod(raw.PaymentMethod),
		Comment:       raw.Comment,
		Lines:         make([]model.OrderLine, 0, len(raw.Items)),
		Subtotal:      raw.Subtotal,
		Total:         raw.Total,
		StoreID:       raw.StoreID,
		CreatedAt:     raw.CreatedAt,
	}
	for _, it := range raw.Items {
		o.Lines = append(o.Lines, model.OrderLine{
			ProductID: it.ProductID,
			Name:      it.ProductName,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}
	return o
}
