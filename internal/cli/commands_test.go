package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/app"
)

type env struct {
	t   *testing.T
	app *app.App
	api string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("STOREFRONT_CLEAR_DELAY", "1ms")
	t.Setenv("STOREFRONT_LOG_LEVEL", "error")

	a, _, err := app.NewInMemory(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return &env{t: t, app: a, api: srv.URL + "/api"}
}

// run executes the CLI as shopper u1.
func (e *env) run(args ...string) (int, string, string) {
	e.t.Helper()
	return e.runAs("u1", args...)
}

func (e *env) runAs(token string, args ...string) (int, string, string) {
	e.t.Helper()
	full := []string{"--api", e.api}
	if token != "" {
		full = append(full, "--token", token)
	}
	var out, errOut bytes.Buffer
	code := Execute(context.Background(), append(full, args...), &out, &errOut)
	return code, out.String(), errOut.String()
}

func decodeCart(t *testing.T, stdout string) cartView {
	t.Helper()
	var resp struct {
		Status string   `json:"status"`
		Data   cartView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp), stdout)
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestCartCommands(t *testing.T) {
	e := newEnv(t)

	code, out, _ := e.run("add", "1", "2")
	require.Equal(t, ExitSuccess, code, out)
	assert.Contains(t, out, "Cart: 2 item(s)")
	assert.Contains(t, out, "Green Bakery")

	code, out, _ = e.run("--format", "json", "add", "3")
	require.Equal(t, ExitSuccess, code, out)
	c := decodeCart(t, out)
	assert.Equal(t, 3, c.ItemCount)
	assert.Equal(t, "2500", c.Subtotal.String())
	require.Len(t, c.Items, 2)
	veggie := strconv.FormatInt(c.Items[1].ID, 10)

	code, out, _ = e.run("--format", "json", "update", veggie, "0")
	require.Equal(t, ExitSuccess, code, out)
	assert.Len(t, decodeCart(t, out).Items, 1, "quantity zero removes the item")

	code, out, _ = e.run("cart")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "Bakery surprise box")

	code, out, _ = e.run("clear")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "Cart is empty\n", out)

	code, out, _ = e.runAs("u2", "cart")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "Cart is empty\n", out)
}

func TestRejectedAddIsBusinessFailure(t *testing.T) {
	e := newEnv(t)
	code, out, _ := e.run("add", "4")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, out, "Error [backend]: failed to add item")
}

func TestSignedOut(t *testing.T) {
	e := newEnv(t)
	code, out, _ := e.runAs("", "cart")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, out, "Please sign in")

	code, out, _ = e.runAs("", "--format", "json", "add", "1")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, out, `"code":"unauthenticated"`)
}

func TestCommandErrors(t *testing.T) {
	e := newEnv(t)

	code, _, _ := e.run("add", "abc")
	assert.Equal(t, ExitCommandError, code)

	code, _, errOut := e.run("update", "1")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, errOut, "accepts 2 arg(s)")

	code, _, errOut = e.run("--format", "xml", "cart")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, errOut, "invalid format")

	var out, stderr bytes.Buffer
	code = Execute(context.Background(), []string{"--api", "http://127.0.0.1:1/api", "--token", "u1", "cart"}, &out, &stderr)
	assert.Equal(t, ExitCommandError, code, "an unreachable backend is a command error")
	assert.Contains(t, out.String(), "Could not reach the server")
}

func TestReconcileCommand(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	code, _, _ := e.run("add", "1", "3")
	require.Equal(t, ExitSuccess, code)
	code, _, _ = e.run("add", "5", "1")
	require.Equal(t, ExitSuccess, code)
	require.NoError(t, e.app.Catalog.SetStock(ctx, 1, 1))
	require.NoError(t, e.app.Catalog.SetStock(ctx, 5, 0))

	code, out, _ := e.run("reconcile")
	assert.Equal(t, ExitFailure, code, "discrepancies are left")
	assert.Contains(t, out, "SHORT")
	assert.Contains(t, out, "UNAVAILABLE")

	code, out, _ = e.run("reconcile", "--clamp")
	assert.Equal(t, ExitFailure, code, "the sold out item is still there")
	assert.Contains(t, out, "Lowered 1 item(s)")
	assert.NotContains(t, out, "SHORT")

	code, out, _ = e.run("reconcile", "--remove-unavailable")
	assert.Equal(t, ExitSuccess, code, out)
	assert.Contains(t, out, "Removed 1 unavailable item(s)")
	assert.Contains(t, out, "All items are in stock")
	assert.Contains(t, out, "Cart: 1 item(s)")
}

func TestCheckoutCommand(t *testing.T) {
	e := newEnv(t)

	code, _, _ := e.run("add", "1", "2")
	require.Equal(t, ExitSuccess, code)
	code, _, _ = e.run("add", "3", "1")
	require.Equal(t, ExitSuccess, code)

	code, out, errOut := e.run("--name", "Dana", "--phone", "+7 701 111 22 33",
		"checkout", "--comment", "ring twice", "--countdown", "2", "--tick", "1ms")
	require.Equal(t, ExitSuccess, code, out+errOut)
	assert.Contains(t, out, "Order ORD-")
	assert.Contains(t, out, "Pickup:   Green Bakery, 12 Abai Ave")
	assert.Contains(t, out, "Customer: Dana (+7 701 111 22 33)")
	assert.Contains(t, out, "Total:    2500.00")
	assert.Contains(t, errOut, "Returning to shopping in 1...")

	code, out, _ = e.run("cart")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "Cart is empty\n", out)

	code, out, _ = e.run("orders")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "ORD-")
	assert.Contains(t, out, "3 item(s)")
}

func TestCheckoutFailures(t *testing.T) {
	e := newEnv(t)

	code, out, _ := e.run("checkout", "--tick", "1ms")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, out, "Error [empty_cart]")

	code, _, _ = e.run("add", "1")
	require.Equal(t, ExitSuccess, code)

	code, out, _ = e.run("checkout", "--payment", "card", "--tick", "1ms")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, out, "payment method is not available")

	code, out, _ = e.run("cart")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "Cart: 1 item(s)", "a failed checkout keeps the cart")
}

func TestCheckoutStopsOnStockMismatch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	code, _, _ := e.run("add", "1", "3")
	require.Equal(t, ExitSuccess, code)
	require.NoError(t, e.app.Catalog.SetStock(ctx, 1, 1))

	code, out, _ := e.run("checkout", "--tick", "1ms")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, out, "SHORT")
	assert.Contains(t, out, "Error [stock]")
	assert.Contains(t, out, "reconcile --remove-unavailable --clamp")

	code, out, _ = e.run("orders")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "No orders yet")

	code, _, _ = e.run("reconcile", "--clamp")
	require.Equal(t, ExitSuccess, code)
	code, out, errOut := e.run("checkout", "--countdown", "1", "--tick", "1ms")
	require.Equal(t, ExitSuccess, code, out+errOut)
	assert.Contains(t, out, "Order ORD-")
}
