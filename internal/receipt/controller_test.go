package receipt

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/model"
)

type fakeTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }

func (f *fakeTicker) Stop() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *fakeTicker) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

type tickers struct {
	mu  sync.Mutex
	all []*fakeTicker
}

func (ts *tickers) factory(time.Duration) Ticker {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time, 1)}
	ts.all = append(ts.all, t)
	return t
}

func (ts *tickers) get(i int) *fakeTicker {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.all[i]
}

type recorder struct {
	mu      sync.Mutex
	reasons []Reason
}

func (r *recorder) record(reason Reason) {
	r.mu.Lock()
	r.reasons = append(r.reasons, reason)
	r.mu.Unlock()
}

func (r *recorder) got() []Reason {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Reason(nil), r.reasons...)
}

func sampleOrder() model.Order {
	return model.Order{
		ID:            1,
		Number:        "ORD-2025-001",
		PaymentMethod: model.PaymentCash,
		Subtotal:      decimal.NewFromInt(2500),
		Total:         decimal.NewFromInt(2500),
	}
}

func newController(t *testing.T, opts ...Option) (*Controller, *recorder, *tickers) {
	t.Helper()
	rec := &recorder{}
	ts := &tickers{}
	c := New(sampleOrder(), rec.record, append([]Option{WithTicker(ts.factory)}, opts...)...)
	t.Cleanup(c.Stop)
	return c, rec, ts
}

func TestExpiresAfterFullCountdown(t *testing.T) {
	c, rec, _ := newController(t)
	c.Start()
	assert.Equal(t, DefaultCountdown, c.Remaining())

	for i := 0; i < DefaultCountdown-1; i++ {
		c.Tick()
	}
	assert.Empty(t, rec.got())
	assert.Equal(t, 1, c.Remaining())

	c.Tick()
	assert.Equal(t, []Reason{ReasonExpired}, rec.got())
	assert.Equal(t, Returned, c.Phase())

	c.Tick()
	assert.Equal(t, []Reason{ReasonExpired}, rec.got(), "a 16th tick does nothing")
	assert.Equal(t, 0, c.Remaining())
}

func TestCloseAfterTwoTicksFiresOnce(t *testing.T) {
	c, rec, ts := newController(t)
	c.Start()
	c.Tick()
	c.Tick()
	assert.Equal(t, 13, c.Remaining())

	assert.True(t, c.Close())
	assert.False(t, c.Continue())
	assert.False(t, c.Close())
	for i := 0; i < DefaultCountdown; i++ {
		c.Tick()
	}

	assert.Equal(t, []Reason{ReasonClose}, rec.got())
	assert.Equal(t, ReasonClose, c.Reason())
	assert.Eventually(t, ts.get(0).isStopped, time.Second, time.Millisecond)
}

func TestTimerDrivesCountdown(t *testing.T) {
	var mu sync.Mutex
	var seen []int
	c, rec, ts := newController(t, WithCountdown(3), OnTick(func(n int) {
		mu.Lock()
		seen = append(seen, n)
		mu.Unlock()
	}))
	c.Start()

	tk := ts.get(0)
	for i := 0; i < 3; i++ {
		tk.ch <- time.Now()
		want := 2 - i
		require.Eventually(t, func() bool { return c.Remaining() == want }, time.Second, time.Millisecond)
	}
	require.Eventually(t, func() bool { return len(rec.got()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, ReasonExpired, rec.got()[0])

	mu.Lock()
	assert.Equal(t, []int{2, 1, 0}, seen)
	mu.Unlock()
}

func TestRestartTearsDownPreviousTimer(t *testing.T) {
	c, rec, ts := newController(t)
	c.Start()
	c.Tick()
	c.Start()

	assert.Equal(t, DefaultCountdown, c.Remaining(), "restart begins a full countdown")
	old := ts.get(0)
	require.Eventually(t, old.isStopped, time.Second, time.Millisecond)

	old.ch <- time.Now()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, DefaultCountdown, c.Remaining(), "the old timer no longer ticks")

	ts.get(1).ch <- time.Now()
	require.Eventually(t, func() bool { return c.Remaining() == DefaultCountdown-1 }, time.Second, time.Millisecond)
	assert.Empty(t, rec.got())
}

func TestStopPreventsCallbacks(t *testing.T) {
	c, rec, ts := newController(t, WithCountdown(1))
	c.Start()
	c.Stop()

	require.Eventually(t, ts.get(0).isStopped, time.Second, time.Millisecond)
	c.Tick()
	assert.False(t, c.Continue())
	assert.Empty(t, rec.got())
	assert.Equal(t, Stopped, c.Phase())

	c.Start()
	assert.Equal(t, Stopped, c.Phase(), "a stopped controller stays stopped")
}

func TestTicksBeforeStartAreIgnored(t *testing.T) {
	c, rec, _ := newController(t, WithCountdown(1))
	c.Tick()
	assert.Equal(t, Idle, c.Phase())
	assert.Equal(t, 1, c.Remaining())
	assert.Empty(t, rec.got())

	assert.True(t, c.Continue(), "the shopper may leave before the countdown starts")
	assert.Equal(t, []Reason{ReasonContinue}, rec.got())
}

func TestDefaults(t *testing.T) {
	c := New(sampleOrder(), nil, WithCountdown(0), WithTick(-time.Second))
	assert.Equal(t, DefaultCountdown, c.countdown)
	assert.Equal(t, DefaultTick, c.interval)
	assert.Equal(t, "ORD-2025-001", c.Order().Number)
}
