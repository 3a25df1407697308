package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/model"
)

// NewOrdersCommand creates the orders command.
func NewOrdersCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "List your orders, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			ctx := cmd.Context()
			s, err := opts.connect(ctx, cmd)
			if err != nil {
				return failConnect(f, err)
			}
			defer s.close()

			if _, ok := s.sess.Current(); !ok {
				return failBackend(f, "failed to list orders", model.ErrUnauthenticated)
			}
			orders, err := s.client.MyOrders(ctx)
			if err != nil {
				return failBackend(f, "failed to list orders", err)
			}
			views := make([]orderView, 0, len(orders))
			for _, o := range orders {
				views = append(views, toOrderView(o, ""))
			}
			return f.Success(views, func(w io.Writer) { renderOrders(w, orders) })
		},
	}
}
