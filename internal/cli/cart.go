package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/model"
)

// Error codes in JSON output.
const (
	codeConfig      = "config"
	codeAuth        = "unauthenticated"
	codeBackend     = "backend"
	codeEmptyCart   = "empty_cart"
	codeStock       = "stock"
	codeOrderFailed = "order_failed"
)

// NewCartCommand creates the cart command.
func NewCartCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cart",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCartOp(cmd, opts, "failed to load cart", func(ctx context.Context, s *shop) error {
				if _, ok := s.cart.Cart(); !ok {
					return model.ErrUnauthenticated
				}
				return nil
			})
		},
	}
}

// NewAddCommand creates the add command.
func NewAddCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <productID> [quantity]",
		Short: "Add boxes of a product to the cart",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			productID, err := parseID(args[0])
			if err != nil {
				return fail(f, codeConfig, err)
			}
			qty := 1
			if len(args) == 2 {
				if qty, err = parseQuantity(args[1]); err != nil {
					return fail(f, codeConfig, err)
				}
			}
			return runCartOp(cmd, opts, "failed to add item", func(ctx context.Context, s *shop) error {
				return s.cart.AddItem(ctx, productID, qty)
			})
		},
	}
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <itemID> <quantity>",
		Short: "Set the quantity of a cart item; 0 removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			itemID, err := parseID(args[0])
			if err != nil {
				return fail(f, codeConfig, err)
			}
			qty, err := parseQuantity(args[1])
			if err != nil {
				return fail(f, codeConfig, err)
			}
			return runCartOp(cmd, opts, "failed to update item", func(ctx context.Context, s *shop) error {
				return s.cart.UpdateItem(ctx, itemID, qty)
			})
		},
	}
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <itemID>",
		Short: "Remove an item from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := parseID(args[0])
			if err != nil {
				return fail(opts.formatter(cmd), codeConfig, err)
			}
			return runCartOp(cmd, opts, "failed to remove item", func(ctx context.Context, s *shop) error {
				return s.cart.RemoveItem(ctx, itemID)
			})
		},
	}
}

// NewClearCommand creates the clear command.
func NewClearCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCartOp(cmd, opts, "failed to clear cart", func(ctx context.Context, s *shop) error {
				return s.cart.ClearCart(ctx)
			})
		},
	}
}

// runCartOp connects, runs op against the synchronizer and prints the
// resulting cart.
func runCartOp(cmd *cobra.Command, opts *RootOptions, message string, op func(context.Context, *shop) error) error {
	f := opts.formatter(cmd)
	ctx := cmd.Context()
	s, err := opts.connect(ctx, cmd)
	if err != nil {
		return failConnect(f, err)
	}
	defer s.close()

	if err := op(ctx, s); err != nil {
		return failBackend(f, message, err)
	}
	c, _ := s.cart.Cart()
	return f.Success(toCartView(c), func(w io.Writer) { renderCart(w, c) })
}

func failConnect(f *OutputFormatter, err error) error {
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		exitErr = WrapExitError(ExitCommandError, "failed to start", err)
	}
	code := codeBackend
	if exitErr.Code == ExitCommandError && exitErr.Message == "invalid configuration" {
		code = codeConfig
	}
	return fail(f, code, exitErr)
}

func failBackend(f *OutputFormatter, message string, err error) error {
	code := codeBackend
	if errors.Is(err, model.ErrUnauthenticated) {
		code = codeAuth
	}
	return fail(f, code, backendError(message, err))
}

func parseID(s string) (int64, *ExitError) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid id %q", s))
	}
	return id, nil
}

func parseQuantity(s string) (int, *ExitError) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid quantity %q", s))
	}
	return n, nil
}
