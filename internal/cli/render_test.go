package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/model"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/stock"
)

func golden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

var (
	bakeryBox = model.Item{ID: 1, ProductID: 1, Name: "Bakery surprise box", UnitPrice: decimal.NewFromInt(1000), Quantity: 2, Store: model.KnownStore(1, "Green Bakery")}
	veggieBox = model.Item{ID: 2, ProductID: 3, Name: "Veggie box", UnitPrice: decimal.NewFromInt(500), Quantity: 1, Store: model.UnresolvedStore()}
	rollsBox  = model.Item{ID: 3, ProductID: 5, Name: "Evening rolls box", UnitPrice: decimal.NewFromInt(2000), Quantity: 1, Store: model.KnownStore(3, "Sushi Point")}
	dairyBox  = model.Item{ID: 4, ProductID: 4, Name: "Dairy box", UnitPrice: decimal.NewFromInt(700), Quantity: 1, Store: model.KnownStore(2, "")}
)

func TestRenderCart(t *testing.T) {
	var buf bytes.Buffer
	renderCart(&buf, model.Cart{Items: []model.Item{bakeryBox, veggieBox, dairyBox}})
	golden(t).Assert(t, "cart", buf.Bytes())
}

func TestRenderEmptyCart(t *testing.T) {
	var buf bytes.Buffer
	renderCart(&buf, model.Cart{})
	golden(t).Assert(t, "cart_empty", buf.Bytes())
}

func TestRenderReport(t *testing.T) {
	short := bakeryBox
	short.Quantity = 3
	report := stock.Report{
		Discrepancies: []stock.Discrepancy{
			{Item: rollsBox, Requested: 1, Available: 0, Kind: stock.Unavailable},
			{Item: short, Requested: 3, Available: 1, Kind: stock.PartiallyShort},
		},
		Skipped:   []model.Item{dairyBox},
		ScannedAt: time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC),
	}
	var buf bytes.Buffer
	renderReport(&buf, report)
	golden(t).Assert(t, "report", buf.Bytes())
}

func TestRenderReceipt(t *testing.T) {
	order := model.Order{
		ID:            1,
		Number:        "ORD-2025-001",
		Status:        "PLACED",
		CustomerName:  "Dana",
		CustomerPhone: "+7 701 111 22 33",
		PaymentMethod: model.PaymentCash,
		Comment:       "ring twice",
		Lines: []model.OrderLine{
			{ProductID: 1, Name: "Bakery surprise box", UnitPrice: decimal.NewFromInt(1000), Quantity: 2},
			{ProductID: 3, Name: "Veggie box", UnitPrice: decimal.NewFromInt(500), Quantity: 1},
		},
		Subtotal: decimal.NewFromInt(2500),
		Total:    decimal.NewFromInt(2500),
		StoreID:  1,
	}
	var buf bytes.Buffer
	renderReceipt(&buf, order, "Green Bakery, 12 Abai Ave")
	golden(t).Assert(t, "receipt", buf.Bytes())
}

func TestRenderOrders(t *testing.T) {
	orders := []model.Order{
		{Number: "ORD-2025-002", Status: "PLACED", Lines: []model.OrderLine{{Quantity: 1}}, Total: decimal.NewFromInt(2000)},
		{Number: "ORD-2025-001", Status: "CONFIRMED", Lines: []model.OrderLine{{Quantity: 2}, {Quantity: 1}}, Total: decimal.RequireFromString("2500.5")},
	}
	var buf bytes.Buffer
	renderOrders(&buf, orders)
	golden(t).Assert(t, "orders", buf.Bytes())
}
