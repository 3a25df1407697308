// Package receipt drives the order confirmation view: it shows the created
// order and returns the shopper to the storefront after a countdown, or
// earlier when they ask for it.
package receipt

import (
	"log/slog"
	"sync"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/model"
)

const (
	// DefaultCountdown is the number of ticks the receipt stays up.
	DefaultCountdown = 15
	// DefaultTick is the interval between ticks.
	DefaultTick = time.Second
)

// Reason tells why the receipt was left.
type Reason int

const (
	ReasonContinue Reason = iota + 1 // shopper chose to keep shopping
	ReasonClose                      // shopper dismissed the receipt
	ReasonExpired                    // countdown ran out
)

func (r Reason) String() string {
	switch r {
	case ReasonContinue:
		return "continue"
	case ReasonClose:
		return "close"
	case ReasonExpired:
		return "expired"
	default:
		return "none"
	}
}

// Phase is the controller's state.
type Phase int

const (
	Idle     Phase = iota // created, countdown not started
	Running               // countdown active
	Returned              // the return action fired
	Stopped               // torn down without returning
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Returned:
		return "returned"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Ticker is the time source of the countdown.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

func newStdTicker(d time.Duration) Ticker { return stdTicker{time.NewTicker(d)} }

// Controller is the countdown state machine of one receipt.
type Controller struct {
	order     model.Order
	countdown int
	interval  time.Duration
	newTicker func(time.Duration) Ticker
	onReturn  func(Reason)
	onTick    func(remaining int)
	logger    *slog.Logger

	mu        sync.Mutex
	phase     Phase
	remaining int
	reason    Reason
	stop      chan struct{} // closed to end the running timer goroutine
}

// Option configures a Controller.
type Option func(*Controller)

// WithCountdown sets the number of ticks before the receipt expires.
func WithCountdown(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.countdown = n
		}
	}
}

// WithTick sets the interval between ticks.
func WithTick(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithTicker replaces the time source.
func WithTicker(newTicker func(time.Duration) Ticker) Option {
	return func(c *Controller) {
		if newTicker != nil {
			c.newTicker = newTicker
		}
	}
}

// OnTick registers a callback receiving the remaining count after each tick.
func OnTick(fn func(remaining int)) Option {
	return func(c *Controller) { c.onTick = fn }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New returns an idle controller for order. onReturn is called at most once.
func New(order model.Order, onReturn func(Reason), opts ...Option) *Controller {
	c := &Controller{
		order:     order,
		countdown: DefaultCountdown,
		interval:  DefaultTick,
		newTicker: newStdTicker,
		onReturn:  onReturn,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.remaining = c.countdown
	return c
}

// Start (re)starts the countdown from the full count. A timer left from an
// earlier Start is torn down first. Start does nothing once the receipt was
// left or stopped.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.phase == Returned || c.phase == Stopped {
		c.mu.Unlock()
		return
	}
	c.teardownLocked()
	c.phase = Running
	c.remaining = c.countdown
	stop := make(chan struct{})
	c.stop = stop
	ticker := c.newTicker(c.interval)
	c.mu.Unlock()

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C():
				c.tick(stop)
			}
		}
	}()
	c.logger.Debug("Receipt countdown started", "order", c.order.Number, "ticks", c.countdown)
}

// Tick advances the countdown by one. When it reaches zero the receipt
// expires. Ticks outside the Running phase are ignored.
func (c *Controller) Tick() { c.tick(nil) }

// tick ignores ticks from a timer that was torn down in the meantime.
func (c *Controller) tick(from chan struct{}) {
	c.mu.Lock()
	if c.phase != Running || (from != nil && from != c.stop) {
		c.mu.Unlock()
		return
	}
	c.remaining--
	remaining := c.remaining
	onTick := c.onTick
	c.mu.Unlock()

	if onTick != nil {
		onTick(remaining)
	}
	if remaining <= 0 {
		c.fire(ReasonExpired)
	}
}

// Continue leaves the receipt to keep shopping.
func (c *Controller) Continue() bool { return c.fire(ReasonContinue) }

// Close dismisses the receipt.
func (c *Controller) Close() bool { return c.fire(ReasonClose) }

// fire runs the return action once. It reports whether this call won.
func (c *Controller) fire(reason Reason) bool {
	c.mu.Lock()
	if c.phase == Returned || c.phase == Stopped {
		c.mu.Unlock()
		return false
	}
	c.teardownLocked()
	c.phase = Returned
	c.reason = reason
	onReturn := c.onReturn
	c.mu.Unlock()

	c.logger.Info("Leaving receipt", "order", c.order.Number, "reason", reason.String())
	if onReturn != nil {
		onReturn(reason)
	}
	return true
}

// Stop tears the controller down. No callback fires afterwards.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
	if c.phase != Returned {
		c.phase = Stopped
	}
}

func (c *Controller) teardownLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

// Order returns the order shown on the receipt.
func (c *Controller) Order() model.Order { return c.order }

// Remaining returns the ticks left before expiry.
func (c *Controller) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Reason returns why the receipt was left, or 0 if it was not.
func (c *Controller) Reason() Reason {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}
