// Package stock finds cart lines that the live catalog can no longer fulfil
// and applies the remedies the shopper chooses.
//
// Discrepancies are reported, never corrected on the reconciler's own
// initiative. Corrections go through the cart synchronizer so the cart stays
// write-through.
package stock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/model"
)

// DefaultRescanDelay is how long the reconciler waits after a corrective
// mutation before scanning again.
const DefaultRescanDelay = 300 * time.Millisecond

var (
	// ErrNotShort is returned by ClampOne for a line that is not partially short.
	ErrNotShort = errors.New("line is not partially short")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("stock reconciler is closed")
)

// Catalog looks up live product records.
type Catalog interface {
	Product(ctx context.Context, id int64) (model.Product, error)
}

// Cart is the cart the reconciler inspects and corrects.
type Cart interface {
	Items() []model.Item
	UpdateItem(ctx context.Context, itemID int64, quantity int) error
	RemoveItem(ctx context.Context, itemID int64) error
}

// Reconciler scans a cart against live stock.
type Reconciler struct {
	catalog     Catalog
	cart        Cart
	logger      *slog.Logger
	rescanDelay time.Duration
	now         func() time.Time

	mu        sync.Mutex
	report    Report
	scanSeq   uint64 // sequence of the newest started scan
	reportSeq uint64 // sequence of the scan that produced report
	timer     *time.Timer
	closed    bool
	observers map[int]func(Report)
	nextObs   int
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRescanDelay sets the debounce delay of the automatic rescan.
func WithRescanDelay(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.rescanDelay = d
		}
	}
}

// NewReconciler returns a reconciler with an empty report.
func NewReconciler(catalog Catalog, cart Cart, opts ...Option) *Reconciler {
	r := &Reconciler{
		catalog:     catalog,
		cart:        cart,
		logger:      slog.Default(),
		rescanDelay: DefaultRescanDelay,
		now:         time.Now,
		observers:   make(map[int]func(Report)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type lookup struct {
	snap model.StockSnapshot
	err  error
}

// Scan looks up every cart line's product concurrently and classifies it.
// A failed lookup is logged and the line lands in Report.Skipped; the other
// lookups are not affected. A missing product counts as unavailable.
func (r *Reconciler) Scan(ctx context.Context) (Report, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return Report{}, ErrClosed
	}
	r.scanSeq++
	seq := r.scanSeq
	r.mu.Unlock()

	items := r.cart.Items()
	results := make([]lookup, len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item model.Item) {
			defer wg.Done()
			p, err := r.catalog.Product(ctx, item.ProductID)
			switch {
			case errors.Is(err, model.ErrNotFound):
				results[i] = lookup{snap: model.StockSnapshot{ProductID: item.ProductID}}
			case err != nil:
				results[i] = lookup{err: err}
			default:
				results[i] = lookup{snap: p.Stock()}
			}
		}(i, item)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return Report{}, fmt.Errorf("failed to scan cart stock: %w", err)
	}

	report := Report{ScannedAt: r.now()}
	for i, item := range items {
		res := results[i]
		if res.err != nil {
			r.logger.Warn("Stock lookup failed, skipping line", "product_id", item.ProductID, "err", res.err)
			report.Skipped = append(report.Skipped, item)
			continue
		}
		if d, ok := Classify(item, res.snap); ok {
			report.Discrepancies = append(report.Discrepancies, d)
		}
	}

	r.mu.Lock()
	if r.closed || seq < r.reportSeq {
		r.mu.Unlock()
		return report, nil
	}
	r.report = report
	r.reportSeq = seq
	r.mu.Unlock()

	r.logger.Info("Stock scan finished",
		"lines", len(items),
		"unavailable", len(report.Unavailable()),
		"partially_short", len(report.PartiallyShort()),
		"skipped", len(report.Skipped),
	)
	r.notify(report)
	return report, nil
}

// Report returns the latest scan result.
func (r *Reconciler) Report() Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.report
}

// RemoveUnavailable removes every unavailable line of the latest report and
// returns how many were removed.
func (r *Reconciler) RemoveUnavailable(ctx context.Context) (int, error) {
	n := 0
	for _, d := range r.Report().Unavailable() {
		changed, err := r.remove(ctx, d)
		if err != nil {
			r.afterMutation(ctx, n)
			return n, err
		}
		if changed {
			n++
		}
	}
	r.afterMutation(ctx, n)
	return n, nil
}

// ClampPartiallyShort lowers every partially short line of the latest report
// to the available quantity and returns how many lines changed. Lines already
// at or below the available quantity are left alone, so a repeated call
// changes nothing.
func (r *Reconciler) ClampPartiallyShort(ctx context.Context) (int, error) {
	n := 0
	for _, d := range r.Report().PartiallyShort() {
		changed, err := r.clamp(ctx, d)
		if err != nil {
			r.afterMutation(ctx, n)
			return n, err
		}
		if changed {
			n++
		}
	}
	r.afterMutation(ctx, n)
	return n, nil
}

// RemoveOne removes the line of a single discrepancy.
func (r *Reconciler) RemoveOne(ctx context.Context, d Discrepancy) error {
	changed, err := r.remove(ctx, d)
	if changed {
		r.afterMutation(ctx, 1)
	}
	return err
}

// ClampOne lowers a single partially short line to the available quantity.
func (r *Reconciler) ClampOne(ctx context.Context, d Discrepancy) error {
	if d.Kind != PartiallyShort {
		return ErrNotShort
	}
	changed, err := r.clamp(ctx, d)
	if changed {
		r.afterMutation(ctx, 1)
	}
	return err
}

func (r *Reconciler) remove(ctx context.Context, d Discrepancy) (bool, error) {
	if _, ok := r.current(d.Item); !ok {
		return false, nil
	}
	if err := r.cart.RemoveItem(ctx, d.Item.MutationID()); err != nil {
		return false, fmt.Errorf("failed to remove product %d: %w", d.Item.ProductID, err)
	}
	r.logger.Info("Removed unavailable line", "product_id", d.Item.ProductID)
	return true, nil
}

func (r *Reconciler) clamp(ctx context.Context, d Discrepancy) (bool, error) {
	cur, ok := r.current(d.Item)
	if !ok || cur.Quantity <= d.Available {
		return false, nil
	}
	if err := r.cart.UpdateItem(ctx, cur.MutationID(), d.Available); err != nil {
		return false, fmt.Errorf("failed to clamp product %d: %w", d.Item.ProductID, err)
	}
	r.logger.Info("Clamped line to available stock", "product_id", d.Item.ProductID, "from", cur.Quantity, "to", d.Available)
	return true, nil
}

func (r *Reconciler) current(item model.Item) (model.Item, bool) {
	key := item.Key()
	for _, it := range r.cart.Items() {
		if it.Key() == key {
			return it, true
		}
	}
	return model.Item{}, false
}

// afterMutation schedules a debounced rescan when the cart changed.
func (r *Reconciler) afterMutation(ctx context.Context, changed int) {
	if changed == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.rescanDelay, func() {
		if _, err := r.Scan(ctx); err != nil && !errors.Is(err, ErrClosed) {
			r.logger.Error("Rescan failed", "err", err)
		}
	})
}

// Subscribe registers fn to receive every new report.
func (r *Reconciler) Subscribe(fn func(Report)) (unsubscribe func()) {
	r.mu.Lock()
	id := r.nextObs
	r.nextObs++
	r.observers[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.observers, id)
		r.mu.Unlock()
	}
}

func (r *Reconciler) notify(report Report) {
	r.mu.Lock()
	fns := make([]func(Report), 0, len(r.observers))
	for _, fn := range r.observers {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(report)
	}
}

// Close cancels a pending rescan and drops observers.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.observers = make(map[int]func(Report))
}
