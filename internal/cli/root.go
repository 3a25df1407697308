// Package cli is the storefront command line: it drives the cart, stock
// reconciliation and checkout against a backend.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/backend"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/cart"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/config"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/model"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/session"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/storecache"
)

// RootOptions holds the global flags. Empty values fall back to the
// STOREFRONT_* environment.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	API     string
	Token   string
	Name    string
	Phone   string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the storefront command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "storefront",
		Short: "Surprise-box storefront",
		Long:  "Manage the cart, check stock and place pickup orders for discounted surprise boxes.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				err := NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
				return err
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.API, "api", "", "backend API URL (default $STOREFRONT_API_URL)")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", "", "shopper token (default $STOREFRONT_TOKEN)")
	cmd.PersistentFlags().StringVar(&opts.Name, "name", "", "shopper name used on orders")
	cmd.PersistentFlags().StringVar(&opts.Phone, "phone", "", "shopper phone used on orders")

	cmd.AddCommand(NewCartCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewCheckoutCommand(opts))
	cmd.AddCommand(NewOrdersCommand(opts))

	return cmd
}

// Execute runs the command line with args and returns the exit code. Usage
// errors that cobra reports itself count as command errors.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(stderr, "Error:", err)
		return ExitCommandError
	}
	return exitErr.Code
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// shop is what a command needs to talk to the backend as one shopper.
type shop struct {
	cfg    *config.StorefrontConfig
	logger *slog.Logger
	sess   *session.Session
	client *backend.Client
	cart   *cart.Synchronizer
	close  func()
}

// connect loads config, signs the shopper in and mounts the cart.
func (o *RootOptions) connect(ctx context.Context, cmd *cobra.Command) (*shop, error) {
	cfg, err := config.LoadStorefront()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if o.API != "" {
		cfg.APIURL = o.API
	}
	if o.Token != "" {
		cfg.Token = o.Token
	}
	if o.Name != "" {
		cfg.ShopperName = o.Name
	}
	if o.Phone != "" {
		cfg.ShopperPhone = o.Phone
	}
	level := cfg.LogLevel
	if o.Verbose {
		level = "debug"
	}
	logger, err := config.NewLoggerTo(cmd.ErrOrStderr(), level, cfg.LogFormat)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	closers := []func(){}
	var cache storecache.Cache
	if cfg.RedisURL != "" {
		r, err := storecache.NewRedisFromURL(ctx, cfg.RedisURL, cfg.StoreCacheTTL)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to connect to store cache", err)
		}
		r.SetLogger(logger)
		closers = append(closers, func() { r.Close() })
		cache = r
	} else {
		m := storecache.NewMemory(cfg.StoreCacheTTL)
		m.SetLogger(logger)
		cache = m
	}

	sess := session.New()
	client, err := backend.New(cfg.APIURL, sess,
		backend.WithHTTPClient(&http.Client{
			Timeout:   cfg.HTTPTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}),
		backend.WithStoreCache(cache),
		backend.WithLogger(logger),
	)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	sync := cart.NewSynchronizer(client, sess, cart.WithLogger(logger))
	closers = append(closers, sync.Close)
	s := &shop{
		cfg:    cfg,
		logger: logger,
		sess:   sess,
		client: client,
		cart:   sync,
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}

	if cfg.Token != "" {
		sess.SignIn(model.Shopper{ID: cfg.Token, Token: cfg.Token, Name: cfg.ShopperName, Phone: cfg.ShopperPhone})
	}
	if err := sync.Mount(ctx); err != nil {
		s.close()
		return nil, backendError("failed to load cart", err)
	}
	return s, nil
}

// backendError picks the exit code for a failed backend call. Rejections by
// the backend are business failures; anything that kept the request from
// being answered is a command error.
func backendError(message string, err error) *ExitError {
	if backend.IsNetwork(err) {
		return WrapExitError(ExitCommandError, message, err)
	}
	return WrapExitError(ExitFailure, message, err)
}

// fail reports err through the formatter and returns it as an ExitError.
func fail(f *OutputFormatter, code string, err *ExitError) error {
	msg := err.Message
	if err.Err != nil {
		msg = fmt.Sprintf("%s: %s", err.Message, backend.Message(err.Err))
	}
	f.Error(code, msg, nil)
	return err
}
