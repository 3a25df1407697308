package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/model"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/stock"
)

// JSON shapes of command output. StoreRef keeps its fields private, so the
// views flatten it.

type itemView struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
	StoreID   *int64          `json:"storeId,omitempty"`
	StoreName string          `json:"storeName,omitempty"`
}

type cartView struct {
	Items     []itemView      `json:"items"`
	ItemCount int             `json:"itemCount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type discrepancyView struct {
	Kind      string `json:"kind"`
	ItemID    int64  `json:"itemId"`
	ProductID int64  `json:"productId"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

type reportView struct {
	Discrepancies []discrepancyView `json:"discrepancies"`
	Skipped       []int64           `json:"skippedProducts,omitempty"`
	Removed       int               `json:"removed"`
	Clamped       int               `json:"clamped"`
}

type orderView struct {
	ID            int64           `json:"id"`
	Number        string          `json:"orderNumber"`
	Status        string          `json:"status"`
	CustomerName  string          `json:"customerName"`
	CustomerPhone string          `json:"customerPhone"`
	PaymentMethod string          `json:"paymentMethod"`
	Comment       string          `json:"comment,omitempty"`
	Store         string          `json:"store,omitempty"`
	Items         int             `json:"itemCount"`
	Total         decimal.Decimal `json:"total"`
}

func toItemView(it model.Item) itemView {
	v := itemView{
		ID:        it.ID,
		ProductID: it.ProductID,
		Name:      it.Name,
		UnitPrice: it.UnitPrice,
		Quantity:  it.Quantity,
		LineTotal: it.LineTotal(),
		StoreName: it.Store.Name(),
	}
	if id, ok := it.Store.ID(); ok {
		v.StoreID = &id
	}
	return v
}

func toCartView(c model.Cart) cartView {
	v := cartView{Items: make([]itemView, 0, c.Len()), ItemCount: c.ItemCount(), Subtotal: c.Subtotal()}
	for _, it := range c.Items {
		v.Items = append(v.Items, toItemView(it))
	}
	return v
}

func toReportView(r stock.Report, removed, clamped int) reportView {
	v := reportView{Discrepancies: make([]discrepancyView, 0, len(r.Discrepancies)), Removed: removed, Clamped: clamped}
	for _, d := range r.Discrepancies {
		v.Discrepancies = append(v.Discrepancies, discrepancyView{
			Kind:      d.Kind.String(),
			ItemID:    d.Item.MutationID(),
			ProductID: d.Item.ProductID,
			Name:      d.Item.Name,
			Requested: d.Requested,
			Available: d.Available,
		})
	}
	for _, it := range r.Skipped {
		v.Skipped = append(v.Skipped, it.ProductID)
	}
	return v
}

func toOrderView(o model.Order, store string) orderView {
	return orderView{
		ID:            o.ID,
		Number:        o.Number,
		Status:        o.Status,
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		PaymentMethod: string(o.PaymentMethod),
		Comment:       o.Comment,
		Store:         store,
		Items:         o.ItemCount(),
		Total:         o.Total,
	}
}

// renderCart draws one line per item.
func renderCart(w io.Writer, c model.Cart) {
	if c.Empty() {
		fmt.Fprintln(w, "Cart is empty")
		return
	}
	fmt.Fprintf(w, "Cart: %d item(s)\n", c.ItemCount())
	for _, it := range c.Items {
		fmt.Fprintf(w, "  #%-4d %-24s %3d x %8s = %9s  %s\n",
			it.MutationID(), it.Name, it.Quantity, it.UnitPrice.StringFixed(2), it.LineTotal().StringFixed(2), it.Store)
	}
	fmt.Fprintf(w, "Subtotal: %s\n", c.Subtotal().StringFixed(2))
}

func renderReport(w io.Writer, r stock.Report) {
	if r.Clean() && len(r.Skipped) == 0 {
		fmt.Fprintln(w, "All items are in stock")
		return
	}
	for _, d := range r.Unavailable() {
		fmt.Fprintf(w, "UNAVAILABLE  #%-4d %-24s wanted %d, none left\n", d.Item.MutationID(), d.Item.Name, d.Requested)
	}
	for _, d := range r.PartiallyShort() {
		fmt.Fprintf(w, "SHORT        #%-4d %-24s wanted %d, %d left\n", d.Item.MutationID(), d.Item.Name, d.Requested, d.Available)
	}
	for _, it := range r.Skipped {
		fmt.Fprintf(w, "UNCHECKED    #%-4d %-24s stock lookup failed\n", it.MutationID(), it.Name)
	}
}

func renderReceipt(w io.Writer, o model.Order, store string) {
	rule := strings.Repeat("-", 44)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Order %s confirmed\n", o.Number)
	fmt.Fprintln(w, rule)
	if store != "" {
		fmt.Fprintf(w, "Pickup:   %s\n", store)
	}
	fmt.Fprintf(w, "Customer: %s (%s)\n", o.CustomerName, o.CustomerPhone)
	fmt.Fprintf(w, "Payment:  %s\n", o.PaymentMethod)
	if o.Comment != "" {
		fmt.Fprintf(w, "Comment:  %s\n", o.Comment)
	}
	for _, l := range o.Lines {
		fmt.Fprintf(w, "  %-24s %3d x %8s = %9s\n", l.Name, l.Quantity, l.UnitPrice.StringFixed(2), l.LineTotal().StringFixed(2))
	}
	fmt.Fprintf(w, "Total:    %s\n", o.Total.StringFixed(2))
	fmt.Fprintln(w, rule)
}

func renderOrders(w io.Writer, orders []model.Order) {
	if len(orders) == 0 {
		fmt.Fprintln(w, "No orders yet")
		return
	}
	for _, o := range orders {
		fmt.Fprintf(w, "%-14s %-10s %3d item(s) %9s\n", o.Number, o.Status, o.ItemCount(), o.Total.StringFixed(2))
	}
}
