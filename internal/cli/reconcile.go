package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/model"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/stock"
)

// ReconcileOptions holds flags for the reconcile command.
type ReconcileOptions struct {
	*RootOptions
	RemoveUnavailable bool
	Clamp             bool
}

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReconcileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Check the cart against live stock",
		Long: `Look up every product in the cart and report items that are sold out,
withdrawn, or wanted in a larger quantity than is left.

Without flags nothing is changed. --remove-unavailable drops sold out and
withdrawn items; --clamp lowers short items to what is left.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.RemoveUnavailable, "remove-unavailable", false, "remove sold out and withdrawn items")
	cmd.Flags().BoolVar(&opts.Clamp, "clamp", false, "lower short items to the available quantity")

	return cmd
}

func runReconcile(cmd *cobra.Command, opts *ReconcileOptions) error {
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
	defer r.Close()

	report, err := r.Scan(ctx)
	if err != nil {
		return failBackend(f, "failed to check stock", err)
	}
	f.VerboseLog("Checked %d item(s): %d discrepancy(ies), %d skipped", len(s.cart.Items()), len(report.Discrepancies), len(report.Skipped))

	var removed, clamped int
	if opts.RemoveUnavailable && len(report.Unavailable()) > 0 {
		if removed, err = r.RemoveUnavailable(ctx); err != nil {
			return failBackend(f, "failed to remove unavailable items", err)
		}
	}
	if opts.Clamp && len(report.PartiallyShort()) > 0 {
		if clamped, err = r.ClampPartiallyShort(ctx); err != nil {
			return failBackend(f, "failed to lower quantities", err)
		}
	}
	if removed+clamped > 0 {
		if report, err = r.Scan(ctx); err != nil {
			return failBackend(f, "failed to check stock", err)
		}
	}

	c, _ := s.cart.Cart()
	err = f.Success(toReportView(report, removed, clamped), func(w io.Writer) {
		if removed > 0 {
			fmt.Fprintf(w, "Removed %d unavailable item(s)\n", removed)
		}
		if clamped > 0 {
			fmt.Fprintf(w, "Lowered %d item(s) to the available quantity\n", clamped)
		}
		renderReport(w, report)
		if removed+clamped > 0 {
			renderCart(w, c)
		}
	})
	if err != nil {
		return err
	}
	if !report.Clean() {
		return NewExitError(ExitFailure, fmt.Sprintf("%d item(s) do not match stock", len(report.Discrepancies)))
	}
	return nil
}
