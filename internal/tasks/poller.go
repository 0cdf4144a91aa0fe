package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trackui/internal/shared"
)

// FetchFunc performs one poll request.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// ApplyFunc receives an accepted response. Returning true stops the poller
// before any further request is issued.
type ApplyFunc[T any] func(v T) (stop bool)

// PollerOpts configures a [Poller].
type PollerOpts[T any] struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration // per request, 0 for none
	Fetch    FetchFunc[T]
	Apply    ApplyFunc[T]
	OnError  func(err error) // optional; errors are always logged
	Logger   *log.Logger
}

// Poller drives a [Loop] on a [time.Ticker] in its own goroutine.
//
// Requests may overlap when one outlives the interval. Responses are admitted
// through the loop's tickets and applied one at a time, so the last accepted
// response wins and nothing older replaces it. Failures are logged and the
// loop keeps its cadence.
type Poller[T any] struct {
	mu      sync.Mutex
	loop    *Loop
	opts    PollerOpts[T]
	logger  *log.Logger
	cancel  context.CancelFunc
	done    chan struct{}
	flights sync.WaitGroup
}

// NewPoller creates a stopped poller.
func NewPoller[T any](opts PollerOpts[T]) *Poller[T] {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Poller[T]{
		loop:   NewLoop(opts.Name, opts.Interval),
		opts:   opts,
		logger: shared.WithLogger(logger, "loop", opts.Name),
	}
}

// Start begins polling, restarting the poller if it is already running.
//
// The first request is issued immediately.
func (p *Poller[T]) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	ctx, cancel := context.WithCancel(ctx)
	ticket := p.loop.Start()
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	p.logger.Debug("poller started", "interval", p.loop.Interval())
	p.fire(ctx, ticket)
	go p.run(ctx, ticket, done)
}

// Stop halts polling and cancels in-flight requests. Late responses are discarded.
func (p *Poller[T]) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Running reports whether the poller has an active generation.
func (p *Poller[T]) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loop.Running()
}

// Wait blocks until the ticker goroutine and every in-flight request have finished.
//
// It returns only after the poller was stopped, by [Poller.Stop], a stopping apply or the parent context.
func (p *Poller[T]) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()

	if done != nil {
		<-done
	}
	p.flights.Wait()
}

func (p *Poller[T]) stopLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if p.loop.Running() {
		p.loop.Stop()
		p.logger.Debug("poller stopped")
	}
}

func (p *Poller[T]) run(ctx context.Context, ticket Ticket, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.loop.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.mu.Lock()
			next, ok := p.loop.Next(ticket)
			if ok {
				p.fire(ctx, next)
			}
			p.mu.Unlock()
			if !ok {
				return
			}
			ticket = next
		}
	}
}

// fire issues one request tagged with t. Callers hold p.mu.
func (p *Poller[T]) fire(ctx context.Context, t Ticket) {
	p.flights.Add(1)
	go func() {
		defer p.flights.Done()

		reqCtx := ctx
		if p.opts.Timeout > 0 {
			var cancel context.CancelFunc
			reqCtx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
			defer cancel()
		}

		v, err := p.opts.Fetch(reqCtx)

		p.mu.Lock()
		defer p.mu.Unlock()

		if !p.loop.Accept(t) {
			p.logger.Debug("discarding stale response", "ticket", t)
			return
		}

		if err != nil {
			p.logger.Warn("poll failed", "ticket", t, "error", err)
			if p.opts.OnError != nil {
				p.opts.OnError(err)
			}
			return
		}

		if p.opts.Apply != nil && p.opts.Apply(v) {
			p.stopLocked()
		}
	}()
}
