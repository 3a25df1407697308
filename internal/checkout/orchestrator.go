// Package checkout walks a shopper from the cart through the order form to
// the receipt.
//
// The only backward step is cancelling the form. The receipt leads back to
// the cart only through its own return action. The cart is cleared only
// after the backend confirmed the order created in the same flow, and only
// while the shopper who placed it is signed in.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/cart"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/model"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/receipt"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/session"
)

// DefaultClearDelay separates the receipt appearing from the cart clear.
const DefaultClearDelay = 500 * time.Millisecond

// A cart call in flight when the clear fires makes it wait and try again,
// up to clearAttempts times.
const (
	clearAttempts = 20
	clearRetry    = 50 * time.Millisecond
)

// Fallbacks for customer fields left empty in both the form and the profile.
const (
	PlaceholderName  = "Customer"
	PlaceholderPhone = "not provided"
)

var (
	// ErrEmptyCart keeps the shopper on the cart view.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrPaymentUnavailable is returned for payment methods not offered yet.
	ErrPaymentUnavailable = errors.New("payment method is not available")
	// ErrInvalidTransition is returned for a step the current view does not allow.
	ErrInvalidTransition = errors.New("not allowed from the current view")
	// ErrSubmitting rejects a second submit while one is in flight.
	ErrSubmitting = errors.New("order submission in progress")
	// ErrUnconfirmed is returned when the backend answered without an order
	// id or number.
	ErrUnconfirmed = errors.New("backend did not confirm the order")
)

// SubmitError wraps a failed order submission. The cart is untouched and the
// shopper may retry from the form.
type SubmitError struct {
	Err error
}

func (e *SubmitError) Error() string { return "failed to submit order: " + e.Err.Error() }
func (e *SubmitError) Unwrap() error { return e.Err }

// View is the checkout screen the shopper is on.
type View int

const (
	ViewCart View = iota
	ViewOrderForm
	ViewReceipt
)

func (v View) String() string {
	switch v {
	case ViewCart:
		return "cart"
	case ViewOrderForm:
		return "order form"
	case ViewReceipt:
		return "receipt"
	default:
		return "unknown"
	}
}

// Form is what the shopper fills in. Empty fields fall back to the profile.
type Form struct {
	CustomerName  string
	CustomerPhone string
	PaymentMethod model.PaymentMethod // empty means cash
	Comment       string
}

// Cart is the cart synchronizer as seen by checkout.
type Cart interface {
	Cart() (model.Cart, bool)
	UpdateItem(ctx context.Context, itemID int64, quantity int) error
	RemoveItem(ctx context.Context, itemID int64) error
	ClearCart(ctx context.Context) error
}

// Orders submits orders to the backend.
type Orders interface {
	CreateOrder(ctx context.Context, req model.OrderRequest) (model.Order, error)
}

// Orchestrator owns the checkout view state.
type Orchestrator struct {
	cart       Cart
	orders     Orders
	identity   session.Provider
	logger     *slog.Logger
	clearDelay time.Duration
	afterFunc  func(time.Duration, func()) *time.Timer
	retryDelay time.Duration
	attempts   int
	receiptOps []receipt.Option
	onReturn   func(receipt.Reason)

	mu         sync.Mutex
	view       View
	submitting bool
	err        error
	order      *model.Order
	receipt    *receipt.Controller
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClearDelay sets how long after a confirmed order the cart is cleared.
func WithClearDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.clearDelay = d
		}
	}
}

// WithReceiptOptions passes options to every receipt controller created.
func WithReceiptOptions(opts ...receipt.Option) Option {
	return func(o *Orchestrator) { o.receiptOps = append(o.receiptOps, opts...) }
}

// OnReturn registers a callback for when the receipt leads back to the cart.
func OnReturn(fn func(receipt.Reason)) Option {
	return func(o *Orchestrator) { o.onReturn = fn }
}

// New returns an orchestrator on the cart view.
func New(c Cart, orders Orders, identity session.Provider, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cart:       c,
		orders:     orders,
		identity:   identity,
		logger:     slog.Default(),
		clearDelay: DefaultClearDelay,
		afterFunc:  time.AfterFunc,
		retryDelay: clearRetry,
		attempts:   clearAttempts,
		view:       ViewCart,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ProceedToForm moves from the cart to the order form. An empty or missing
// cart keeps the shopper on the cart view.
func (o *Orchestrator) ProceedToForm() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.view != ViewCart {
		return fmt.Errorf("proceed to form from %s: %w", o.view, ErrInvalidTransition)
	}
	c, ok := o.cart.Cart()
	if !ok || c.Empty() {
		return ErrEmptyCart
	}
	o.view = ViewOrderForm
	o.err = nil
	return nil
}

// Cancel returns from the order form to the cart. Nothing is sent.
func (o *Orchestrator) Cancel() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.view != ViewOrderForm || o.submitting {
		return fmt.Errorf("cancel from %s: %w", o.view, ErrInvalidTransition)
	}
	o.view = ViewCart
	o.err = nil
	return nil
}

// Submit creates the order from the current cart. On success the receipt
// countdown starts and the cart clear is scheduled. On failure the shopper
// stays on the form and the cart is not touched.
func (o *Orchestrator) Submit(ctx context.Context, form Form) (model.Order, error) {
	req, shopperID, err := o.beginSubmit(form)
	if err != nil {
		return model.Order{}, err
	}

	order, err := o.orders.CreateOrder(ctx, req)
	if err == nil && !order.Confirmed() {
		err = ErrUnconfirmed
	}
	if err != nil {
		serr := &SubmitError{Err: err}
		o.mu.Lock()
		o.submitting = false
		o.err = serr
		o.mu.Unlock()
		o.logger.Error("Order submission failed", "items", len(req.Items), "err", err)
		return model.Order{}, serr
	}

	ctrl := receipt.New(order, o.receiptReturned, o.receiptOps...)

	o.mu.Lock()
	o.submitting = false
	o.err = nil
	o.order = &order
	o.receipt = ctrl
	o.view = ViewReceipt
	o.mu.Unlock()

	o.logger.Info("Order placed", "order_id", order.ID, "order_number", order.Number, "total", order.Total.String())
	o.scheduleClear(cart.PinShopper(context.WithoutCancel(ctx), shopperID), shopperID, order, req.Items)
	ctrl.Start()
	return order, nil
}

func (o *Orchestrator) beginSubmit(form Form) (model.OrderRequest, string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.submitting {
		return model.OrderRequest{}, "", ErrSubmitting
	}
	if o.view != ViewOrderForm {
		return model.OrderRequest{}, "", fmt.Errorf("submit from %s: %w", o.view, ErrInvalidTransition)
	}
	shopper, ok := o.identity.Current()
	if !ok {
		o.err = model.ErrUnauthenticated
		return model.OrderRequest{}, "", model.ErrUnauthenticated
	}

	method := form.PaymentMethod
	if method == "" {
		method = model.PaymentCash
	}
	if !method.Available() {
		o.err = ErrPaymentUnavailable
		return model.OrderRequest{}, "", ErrPaymentUnavailable
	}

	c, ok := o.cart.Cart()
	if !ok || c.Empty() {
		o.err = ErrEmptyCart
		return model.OrderRequest{}, "", ErrEmptyCart
	}

	req := model.OrderRequest{
		CustomerName:  firstNonEmpty(form.CustomerName, shopper.Name, PlaceholderName),
		CustomerPhone: firstNonEmpty(form.CustomerPhone, shopper.Phone, PlaceholderPhone),
		PaymentMethod: method,
		Comment:       strings.TrimSpace(form.Comment),
		Items:         make([]model.OrderRequestItem, 0, c.Len()),
	}
	for _, it := range c.Items {
		req.Items = append(req.Items, model.OrderRequestItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	o.submitting = true
	o.err = nil
	return req, shopper.ID, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// scheduleClear takes the ordered boxes out of the cart once the receipt is
// showing. The clear only runs for the shopper who ordered. Lines added
// after the order stay. A failure is logged; the order already exists.
func (o *Orchestrator) scheduleClear(ctx context.Context, shopperID string, order model.Order, ordered []model.OrderRequestItem) {
	remaining := make(map[int64]int, len(ordered))
	for _, it := range ordered {
		remaining[it.ProductID] += it.Quantity
	}
	o.afterFunc(o.clearDelay, func() {
		for attempt := 1; ; attempt++ {
			err := o.removeOrdered(ctx, shopperID, remaining)
			switch {
			case err == nil:
				o.logger.Info("Cart cleared after order", "order_number", order.Number)
				return
			case errors.Is(err, cart.ErrShopperChanged):
				o.logger.Warn("Shopper changed before cart clear, skipping", "order_number", order.Number, "shopper_id", shopperID)
				return
			case errors.Is(err, cart.ErrBusy) && attempt < o.attempts:
				time.Sleep(o.retryDelay)
			default:
				o.logger.Error("Failed to clear cart after order", "order_number", order.Number, "attempts", attempt, "err", err)
				return
			}
		}
	})
}

// removeOrdered empties the cart when it holds nothing but the ordered
// boxes, and otherwise lowers or removes the ordered lines one by one.
// remaining is decremented as lines are handled so a retry does not take
// the same boxes twice.
func (o *Orchestrator) removeOrdered(ctx context.Context, shopperID string, remaining map[int64]int) error {
	if shopper, ok := o.identity.Current(); !ok || shopper.ID != shopperID {
		return cart.ErrShopperChanged
	}
	c, ok := o.cart.Cart()
	if !ok {
		return o.cart.ClearCart(ctx)
	}

	onlyOrdered := true
	for _, it := range c.Items {
		if it.Quantity > remaining[it.ProductID] {
			onlyOrdered = false
			break
		}
	}
	if onlyOrdered {
		if err := o.cart.ClearCart(ctx); err != nil {
			return err
		}
		clear(remaining)
		return nil
	}

	for _, it := range c.Items {
		n := remaining[it.ProductID]
		if n == 0 {
			continue
		}
		if it.Quantity <= n {
			if err := o.cart.RemoveItem(ctx, it.ID); err != nil {
				return err
			}
			remaining[it.ProductID] = n - it.Quantity
			continue
		}
		if err := o.cart.UpdateItem(ctx, it.ID, it.Quantity-n); err != nil {
			return err
		}
		remaining[it.ProductID] = 0
	}
	return nil
}

func (o *Orchestrator) receiptReturned(reason receipt.Reason) {
	o.mu.Lock()
	o.view = ViewCart
	o.receipt = nil
	onReturn := o.onReturn
	o.mu.Unlock()

	if onReturn != nil {
		onReturn(reason)
	}
}

// ReturnToShopping leaves the receipt right away.
func (o *Orchestrator) ReturnToShopping() error {
	o.mu.Lock()
	ctrl := o.receipt
	o.mu.Unlock()
	if ctrl == nil {
		return ErrInvalidTransition
	}
	ctrl.Continue()
	return nil
}

// Close tears down the receipt countdown, if any. A scheduled cart clear
// still runs.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	ctrl := o.receipt
	o.mu.Unlock()
	if ctrl != nil {
		ctrl.Stop()
	}
}

// View returns the current view.
func (o *Orchestrator) View() View {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.view
}

// Receipt returns the countdown of the receipt being shown, or nil.
func (o *Orchestrator) Receipt() *receipt.Controller {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.receipt
}

// Order returns the last created order.
func (o *Orchestrator) Order() (model.Order, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.order == nil {
		return model.Order{}, false
	}
	return *o.order, true
}

// Submitting reports whether an order submission is in flight.
func (o *Orchestrator) Submitting() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.submitting
}

// Err returns the error of the last failed step, or nil.
func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}
