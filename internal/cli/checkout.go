package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/cart"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/checkout"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/model"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/receipt"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/stock"
)

// CheckoutOptions holds flags for the checkout command.
type CheckoutOptions struct {
	*RootOptions
	Comment   string
	Payment   string
	Countdown int
	Tick      time.Duration
}

// NewCheckoutCommand creates the checkout command.
func NewCheckoutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckoutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for the whole cart",
		Long: `Place a pickup order for every item in the cart and print the receipt.

The cart is checked against live stock first; sold out, withdrawn or short
items stop the checkout. The cart is emptied shortly after the order is
confirmed. The receipt stays
up for a countdown before returning to shopping; interrupt to return early.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckout(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Comment, "comment", "", "note for the store")
	cmd.Flags().StringVar(&opts.Payment, "payment", "cash", "payment method (cash|card)")
	cmd.Flags().IntVar(&opts.Countdown, "countdown", 0, "receipt countdown ticks (default $STOREFRONT_RECEIPT_COUNTDOWN)")
	cmd.Flags().DurationVar(&opts.Tick, "tick", 0, "receipt countdown tick (default $STOREFRONT_RECEIPT_TICK)")

	return cmd
}

func runCheckout(cmd *cobra.Command, opts *CheckoutOptions) error {
	f := opts.formatter(cmd)
	ctx := cmd.Context()
	s, err := opts.connect(ctx, cmd)
	if err != nil {
		return failConnect(f, err)
	}
	defer s.close()

	if _, ok := s.cart.Cart(); !ok {
		return failBackend(f, "failed to load cart", model.ErrUnauthenticated)
	}

	r := stock.NewReconciler(s.client, s.cart, stock.WithLogger(s.logger), stock.WithRescanDelay(s.cfg.RescanDelay))
	report, err := r.Scan(ctx)
	r.Close()
	if err != nil {
		return failBackend(f, "failed to check stock", err)
	}
	if !report.Clean() {
		msg := fmt.Sprintf("%d item(s) do not match stock; run `storefront reconcile --remove-unavailable --clamp`", len(report.Discrepancies))
		if f.Format != "json" {
			renderReport(f.Writer, report)
		}
		f.Error(codeStock, msg, toReportView(report, 0, 0))
		return NewExitError(ExitFailure, msg)
	}

	countdown := s.cfg.ReceiptCountdown
	if opts.Countdown > 0 {
		countdown = opts.Countdown
	}
	tick := s.cfg.ReceiptTick
	if opts.Tick > 0 {
		tick = opts.Tick
	}

	returned := make(chan receipt.Reason, 1)
	o := checkout.New(s.cart, s.client, s.sess,
		checkout.WithLogger(s.logger),
		checkout.WithClearDelay(s.cfg.ClearDelay),
		checkout.WithReceiptOptions(
			receipt.WithCountdown(countdown),
			receipt.WithTick(tick),
			receipt.WithLogger(s.logger),
			receipt.OnTick(func(remaining int) {
				if remaining > 0 {
					f.Progress("Returning to shopping in %d...", remaining)
				}
			}),
		),
		checkout.OnReturn(func(r receipt.Reason) { returned <- r }),
	)
	defer o.Close()

	if err := o.ProceedToForm(); err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) {
			return fail(f, codeEmptyCart, NewExitError(ExitFailure, "cart is empty"))
		}
		return fail(f, codeOrderFailed, WrapExitError(ExitFailure, "cannot check out", err))
	}

	order, err := o.Submit(ctx, checkout.Form{
		PaymentMethod: model.PaymentMethod(strings.ToUpper(opts.Payment)),
		Comment:       opts.Comment,
	})
	if err != nil {
		code := codeOrderFailed
		if errors.Is(err, model.ErrUnauthenticated) {
			code = codeAuth
		}
		return fail(f, code, backendError("failed to place order", err))
	}

	store := storeLabel(ctx, s, order)
	if err := f.Success(toOrderView(order, store), func(w io.Writer) { renderReceipt(w, order, store) }); err != nil {
		return err
	}

	select {
	case r := <-returned:
		f.VerboseLog("Receipt closed: %s", r)
	case <-ctx.Done():
		o.Close()
	}

	if !waitCleared(s.cart, s.cfg.ClearDelay+s.cfg.HTTPTimeout) {
		f.Progress("The cart could not be emptied; run `storefront clear`.")
	}
	return nil
}

// storeLabel names the pickup store of order, or "" if it cannot be found.
func storeLabel(ctx context.Context, s *shop, order model.Order) string {
	if order.StoreID <= 0 {
		return ""
	}
	store, err := s.client.Store(ctx, order.StoreID)
	if err != nil {
		s.logger.Warn("Store lookup failed", "store_id", order.StoreID, "err", err)
		return ""
	}
	if store.Address == "" {
		return store.Name
	}
	return fmt.Sprintf("%s, %s", store.Name, store.Address)
}

// waitCleared blocks until the cart is empty and idle, or timeout passes.
func waitCleared(c *cart.Synchronizer, timeout time.Duration) bool {
	cleared := func(st cart.State) bool {
		return st.Cart != nil && st.Cart.Empty() && !st.Loading
	}
	done := make(chan struct{}, 1)
	unsubscribe := c.Subscribe(func(st cart.State) {
		if cleared(st) {
			select {
			case done <- struct{}{}:
			default:
			}
		}
	})
	defer unsubscribe()

	if cleared(c.State()) {
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
