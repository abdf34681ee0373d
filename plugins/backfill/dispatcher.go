package backfill

import (
	"context"
	"sync"

	"github.com/appbaseio/world-search/errors"
	"golang.org/x/sync/errgroup"
)

// Inline ships every task as soon as it is enqueued.
type Inline struct {
	shipper Shipper
	policy  Policy
	tally   Tally
}

// NewInline returns the synchronous dispatcher.
func NewInline(shipper Shipper, policy Policy) *Inline {
	return &Inline{shipper: shipper, policy: policy}
}

// InlineFactory returns a DispatcherFactory building Inline dispatchers.
func InlineFactory(shipper Shipper, policy Policy) DispatcherFactory {
	return func(ctx context.Context) (Dispatcher, error) {
		if shipper == nil {
			return nil, errors.ErrNilShipper
		}
		return NewInline(shipper, policy), nil
	}
}

// Enqueue implements Dispatcher.
func (d *Inline) Enqueue(ctx context.Context, task Task) error {
	d.tally.AddEnqueued()
	if err := d.shipper.Ship(ctx, task); err != nil {
		d.tally.AddFailed()
		if d.policy == FailFast {
			return err
		}
		return nil
	}
	d.tally.AddShipped()
	return nil
}

// Wait implements Dispatcher. Nothing is ever in flight once Enqueue returned.
func (d *Inline) Wait(ctx context.Context) (Stats, error) {
	return d.tally.Stats(), nil
}

// Progress implements Progresser.
func (d *Inline) Progress() Stats {
	return d.tally.Stats()
}

// Pool ships tasks concurrently on a bounded set of goroutines.
type Pool struct {
	shipper Shipper
	policy  Policy
	group   *errgroup.Group
	ctx     context.Context
	tally   Tally

	mu       sync.Mutex
	firstErr error
}

// NewPool returns an asynchronous in-process dispatcher with at most workers
// tasks shipping at a time. Under FailFast the first failure cancels the tasks
// that have not started yet.
func NewPool(ctx context.Context, shipper Shipper, workers int, policy Policy) *Pool {
	if workers <= 0 {
		workers = 1
	}
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	return &Pool{shipper: shipper, policy: policy, group: group, ctx: gctx}
}

// PoolFactory returns a DispatcherFactory building Pool dispatchers.
func PoolFactory(shipper Shipper, workers int, policy Policy) DispatcherFactory {
	return func(ctx context.Context) (Dispatcher, error) {
		if shipper == nil {
			return nil, errors.ErrNilShipper
		}
		return NewPool(ctx, shipper, workers, policy), nil
	}
}

// Enqueue implements Dispatcher. It blocks while every worker is busy.
func (p *Pool) Enqueue(ctx context.Context, task Task) error {
	if err := p.ctx.Err(); err != nil {
		return p.abortErr(err)
	}
	p.tally.AddEnqueued()
	p.group.Go(func() error {
		if err := p.ctx.Err(); err != nil {
			p.tally.AddFailed()
			return p.abortErr(err)
		}
		if err := p.shipper.Ship(p.ctx, task); err != nil {
			p.tally.AddFailed()
			if p.policy == FailFast {
				p.recordErr(err)
				return err
			}
			return nil
		}
		p.tally.AddShipped()
		return nil
	})
	return nil
}

// Wait implements Dispatcher.
func (p *Pool) Wait(ctx context.Context) (Stats, error) {
	done := make(chan error, 1)
	go func() {
		done <- p.group.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			return p.tally.Stats(), p.abortErr(err)
		}
		return p.tally.Stats(), nil
	case <-ctx.Done():
		stats := p.tally.Stats()
		if ctx.Err() == context.DeadlineExceeded {
			return stats, errors.NewDrainTimeoutError(stats.Pending())
		}
		return stats, ctx.Err()
	}
}

// abortErr prefers the shipping failure that cancelled the pool over the
// cancellation it caused.
func (p *Pool) abortErr(err error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.firstErr != nil {
		return p.firstErr
	}
	return err
}

func (p *Pool) recordErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.firstErr == nil {
		p.firstErr = err
	}
}

// Progress implements Progresser.
func (p *Pool) Progress() Stats {
	return p.tally.Stats()
}
