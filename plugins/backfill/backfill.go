package backfill

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/appbaseio/world-search/errors"
	"github.com/appbaseio/world-search/util"
	log "github.com/sirupsen/logrus"
)

const logTag = "[backfill]"

// DefaultBatchSize is the number of records read from the source at once.
const DefaultBatchSize = 100

// Record is a unit of the source data that becomes one document.
type Record interface {
	// Key is the natural key of the record, used as the document id.
	Key() string
	// Body returns the serialized document.
	Body() (json.RawMessage, error)
}

// Source streams records in key order, batchSize at a time. The stream is finite
// and can be restarted from scratch. fn returning an error stops the stream.
type Source interface {
	Stream(ctx context.Context, batchSize int, fn func([]Record) error) error
}

// Task is a single shipping job.
type Task struct {
	ID   string          `json:"id"`
	Body json.RawMessage `json:"body"`
}

// Shipper writes one document to the index behind the write alias.
type Shipper interface {
	Ship(ctx context.Context, task Task) error
}

// Dispatcher delivers tasks to a shipper, either inline or asynchronously.
type Dispatcher interface {
	// Enqueue hands the task over. An error aborts the backfill.
	Enqueue(ctx context.Context, task Task) error
	// Wait blocks until every enqueued task was shipped or failed, or ctx is done.
	Wait(ctx context.Context) (Stats, error)
}

// Progresser is implemented by dispatchers that can report their counters
// while tasks are still in flight.
type Progresser interface {
	Progress() Stats
}

// DispatcherFactory builds a fresh dispatcher for every backfill.
type DispatcherFactory func(ctx context.Context) (Dispatcher, error)

// Policy decides what happens when a document fails to ship.
type Policy string

const (
	// BestEffort logs the failure and keeps going.
	BestEffort Policy = "best-effort"
	// FailFast aborts the backfill on the first failure.
	FailFast Policy = "fail-fast"
)

// ParsePolicy returns the policy named s.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case BestEffort, FailFast:
		return Policy(s), nil
	case "":
		return BestEffort, nil
	}
	return "", fmt.Errorf("unknown failure policy %q", s)
}

// Stats counts what happened to the tasks of a backfill.
type Stats struct {
	Enqueued int64 `json:"enqueued"`
	Shipped  int64 `json:"shipped"`
	Failed   int64 `json:"failed"`
}

// Pending is the number of tasks neither shipped nor failed.
func (s Stats) Pending() int64 {
	return s.Enqueued - s.Shipped - s.Failed
}

// Add returns the sum of both stats.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		Enqueued: s.Enqueued + o.Enqueued,
		Shipped:  s.Shipped + o.Shipped,
		Failed:   s.Failed + o.Failed,
	}
}

// Tally is a concurrency safe Stats.
type Tally struct {
	enqueued atomic.Int64
	shipped  atomic.Int64
	failed   atomic.Int64
}

func (t *Tally) AddEnqueued() { t.enqueued.Add(1) }
func (t *Tally) AddShipped()  { t.shipped.Add(1) }
func (t *Tally) AddFailed()   { t.failed.Add(1) }

// Stats returns a snapshot of the counters.
func (t *Tally) Stats() Stats {
	return Stats{
		Enqueued: t.enqueued.Load(),
		Shipped:  t.shipped.Load(),
		Failed:   t.failed.Load(),
	}
}

// Options tune a Pipeline.
type Options struct {
	BatchSize    int
	Policy       Policy
	DrainTimeout time.Duration
}

// Pipeline streams every record of a source into a dispatcher.
type Pipeline struct {
	source   Source
	dispatch DispatcherFactory
	opts     Options

	mu       sync.Mutex
	progress func() Stats
}

// NewPipeline returns a pipeline reading from source and shipping through the
// dispatchers built by dispatch.
func NewPipeline(source Source, dispatch DispatcherFactory, opts Options) (*Pipeline, error) {
	if source == nil {
		return nil, errors.ErrNilSource
	}
	if dispatch == nil {
		return nil, errors.ErrNilShipper
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Policy == "" {
		opts.Policy = BestEffort
	}
	return &Pipeline{source: source, dispatch: dispatch, opts: opts}, nil
}

// Run streams the source to completion and returns once every enqueued task has
// been shipped or failed. Run never returns while tasks are still in flight,
// unless the drain timeout expires.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	p.mu.Lock()
	p.progress = nil
	p.mu.Unlock()

	dispatcher, err := p.dispatch(ctx)
	if err != nil {
		return Stats{}, err
	}

	logger := log.WithField("batch_size", p.opts.BatchSize)
	if runID, err := util.RunIDFromContext(ctx); err == nil {
		logger = logger.WithField("run_id", runID)
	}

	var local Tally
	p.track(dispatcher, &local)
	batches := 0
	streamErr := p.source.Stream(ctx, p.opts.BatchSize, func(records []Record) error {
		batches++
		logger.Debugln(logTag, ": dispatching batch", batches, "of", len(records), "records")
		for _, record := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			body, err := record.Body()
			if err != nil {
				local.AddEnqueued()
				local.AddFailed()
				logger.WithField("id", record.Key()).Errorln(logTag, ": unable to build document:", err)
				if p.opts.Policy == FailFast {
					return errors.NewShipError(record.Key(), 0, "", err)
				}
				continue
			}
			if err := dispatcher.Enqueue(ctx, Task{ID: record.Key(), Body: body}); err != nil {
				return err
			}
		}
		return nil
	})
	if streamErr != nil {
		logger.Errorln(logTag, ": backfill stopped early:", streamErr)
	}

	waitCtx := ctx
	if p.opts.DrainTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, p.opts.DrainTimeout)
		defer cancel()
	}
	stats, waitErr := dispatcher.Wait(waitCtx)
	stats = stats.Add(local.Stats())
	logger.Infoln(logTag, ": backfill drained: enqueued", stats.Enqueued, "shipped", stats.Shipped, "failed", stats.Failed)

	if streamErr != nil {
		return stats, streamErr
	}
	return stats, waitErr
}

// Progress returns the counters of the backfill in flight, or of the last one.
func (p *Pipeline) Progress() Stats {
	p.mu.Lock()
	progress := p.progress
	p.mu.Unlock()
	if progress == nil {
		return Stats{}
	}
	return progress()
}

func (p *Pipeline) track(dispatcher Dispatcher, local *Tally) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress = func() Stats {
		stats := local.Stats()
		if pr, ok := dispatcher.(Progresser); ok {
			stats = stats.Add(pr.Progress())
		}
		return stats
	}
}
