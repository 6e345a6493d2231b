package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrQueueFull = errors.New("toast queue full")
	ErrClosed    = errors.New("dispatcher closed")
)

type flight struct {
	req    Request
	cancel context.CancelFunc
	// superseded is set when a newer request for the same source arrived.
	superseded bool
}

// Dispatcher shows toasts one at a time on a single worker goroutine.
//
// Bounds: at most one request per source waits in the queue (a newer request
// replaces it in place), a newer request for the source currently on screen
// cancels that toast early, and no more than MaxPending requests wait in
// total. Consecutive toasts are spaced by Interval.
type Dispatcher struct {
	runner     Runner
	limiter    *rate.Limiter
	maxPending int
	logger     *slog.Logger

	mu       sync.Mutex
	pending  []Request
	inflight *flight
	closed   bool

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

type DispatcherOptions struct {
	MaxPending int
	Interval   time.Duration
}

func NewDispatcher(runner Runner, opts DispatcherOptions, logger *slog.Logger) *Dispatcher {
	limit := rate.Inf
	if opts.Interval > 0 {
		limit = rate.Every(opts.Interval)
	}
	maxPending := opts.MaxPending
	if maxPending < 1 {
		maxPending = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		runner:     runner,
		limiter:    rate.NewLimiter(limit, 1),
		maxPending: maxPending,
		logger:     logger,
		wake:       make(chan struct{}, 1),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

func (d *Dispatcher) Start() {
	go d.work()
}

// Stop rejects further requests, drops queued ones, cancels the toast on
// screen and waits for the worker to exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	d.closed = true
	d.pending = nil
	d.mu.Unlock()
	d.cancel()
	<-d.done
}

// Dispatch queues req without blocking.
func (d *Dispatcher) Dispatch(req Request) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	replaced := false
	for i := range d.pending {
		if d.pending[i].SourceID == req.SourceID {
			d.pending[i] = req
			replaced = true
			break
		}
	}
	if !replaced {
		if len(d.pending) >= d.maxPending {
			d.mu.Unlock()
			return ErrQueueFull
		}
		d.pending = append(d.pending, req)
	}
	// Only cut the toast on screen short once its replacement is queued.
	if f := d.inflight; f != nil && f.req.SourceID == req.SourceID && !f.superseded {
		f.superseded = true
		f.cancel()
	}
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
	return nil
}

// Pending returns the number of queued requests, not counting the one on
// screen.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Dispatcher) next() (*flight, context.Context, bool) {
	for {
		d.mu.Lock()
		if len(d.pending) > 0 {
			req := d.pending[0]
			d.pending = d.pending[1:]
			ctx, cancel := context.WithCancel(d.ctx)
			f := &flight{req: req, cancel: cancel}
			d.inflight = f
			d.mu.Unlock()
			return f, ctx, true
		}
		d.mu.Unlock()

		select {
		case <-d.ctx.Done():
			return nil, nil, false
		case <-d.wake:
		}
	}
}

func (d *Dispatcher) work() {
	defer close(d.done)
	for {
		f, ctx, ok := d.next()
		if !ok {
			return
		}
		d.run(ctx, f)

		d.mu.Lock()
		d.inflight = nil
		d.mu.Unlock()
		f.cancel()
	}
}

func (d *Dispatcher) run(ctx context.Context, f *flight) {
	if err := d.limiter.Wait(ctx); err != nil {
		return
	}
	d.logger.Debug("dispatcher: showing toast",
		"id", f.req.ID,
		"source", f.req.SourceID,
		"line1", f.req.Line1,
	)
	err := d.runner.Run(ctx, f.req)
	if err == nil {
		return
	}
	d.mu.Lock()
	superseded := f.superseded
	d.mu.Unlock()
	if superseded || d.ctx.Err() != nil {
		d.logger.Debug("dispatcher: toast cut short", "id", f.req.ID, "source", f.req.SourceID, "err", err)
		return
	}
	d.logger.Warn("dispatcher: toast failed", "id", f.req.ID, "source", f.req.SourceID, "err", err)
}
