// Package backend is the storefront's typed client for the marketplace API.
//
// Every cart call returns the authoritative cart the backend answered with,
// normalized into model.Cart. Mutating calls refuse to run without a
// signed-in shopper and never touch the network in that case.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/api"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/model"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/session"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/storecache"
)

// DefaultTimeout bounds a single HTTP exchange.
const DefaultTimeout = 30 * time.Second

// Client talks to the backend on behalf of the signed-in shopper.
type Client struct {
	baseURL string
	http    *http.Client
	session session.Provider
	stores  storecache.Cache
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithStoreCache sets the cache used for store ownership lookups.
func WithStoreCache(cache storecache.Cache) Option {
	return func(c *Client) {
		if cache != nil {
			c.stores = cache
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New returns a client for the API rooted at baseURL (for example
// "http://localhost:8080/api").
func New(baseURL string, sess session.Provider, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API URL %q: scheme must be http or https", baseURL)
	}
	if sess == nil {
		return nil, fmt.Errorf("session provider is required")
	}

	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		http: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		session: sess,
		stores:  storecache.NewMemory(0),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	// auth makes the call fail with model.ErrUnauthenticated when nobody is
	// signed in. Unauthenticated calls still send a token when one exists.
	auth bool
}

func (r request) op() string { return r.method + " " + r.path }

// do performs the exchange and decodes a 2xx body into out (when non-nil).
func (c *Client) do(ctx context.Context, r request, out any) error {
	shopper, signedIn := c.session.Current()
	if r.auth && !signedIn {
		return model.ErrUnauthenticated
	}

	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if signedIn && shopper.Token != "" {
		req.Header.Set("Authorization", "Bearer "+shopper.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: r.op(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.decodeError(r, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("failed to decode %s response: %w", r.op(), err)
	}
	return nil
}

func (c *Client) decodeError(r request, resp *http.Response) error {
	apiErr := &APIError{Op: r.op(), StatusCode: resp.StatusCode}
	var payload api.Error
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		apiErr.Message = payload.Error
	}
	c.logger.Warn("Backend request failed",
		"op", apiErr.Op,
		"status", apiErr.StatusCode,
		"message", apiErr.Message,
	)
	return apiErr
}
