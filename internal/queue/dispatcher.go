package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	werrors "github.com/appbaseio/world-search/errors"
	"github.com/appbaseio/world-search/plugins/backfill"
	"github.com/appbaseio/world-search/util"
	"github.com/nats-io/nats.go/jetstream"
	log "github.com/sirupsen/logrus"
)

// graceRounds is how many polls Wait keeps listening for results once the
// consumer has drained.
const graceRounds = 3

// Dispatcher publishes every task to JetStream and waits for the workers to
// drain them.
type Dispatcher struct {
	js       jetstream.JetStream
	consumer jetstream.Consumer
	stream   string
	runID    string
	policy   backfill.Policy
	stop     func()

	// PollInterval is how often Wait looks at the consumer.
	PollInterval time.Duration

	mu            sync.Mutex
	enqueued      int64
	publishFailed int64
	outcomes      map[string]bool
	firstErr      error
}

// NewDispatcher ensures the stream and consumer exist and starts listening for
// the results of the run carried by ctx.
func NewDispatcher(ctx context.Context, js jetstream.JetStream, results Results, stream string, policy backfill.Policy) (*Dispatcher, error) {
	if stream == "" {
		stream = defaultStream
	}
	runID, err := util.RunIDFromContext(ctx)
	if err != nil {
		runID = util.NewRunID()
	}
	if err := EnsureStream(ctx, js, stream); err != nil {
		return nil, err
	}
	consumer, err := EnsureConsumer(ctx, js, stream)
	if err != nil {
		return nil, err
	}

	d := &Dispatcher{
		js:           js,
		consumer:     consumer,
		stream:       stream,
		runID:        runID,
		policy:       policy,
		PollInterval: time.Second,
		outcomes:     make(map[string]bool),
	}
	stop, err := results.Listen(runID, d.record)
	if err != nil {
		return nil, err
	}
	d.stop = stop
	return d, nil
}

// Factory returns a DispatcherFactory building nats dispatchers.
func Factory(js jetstream.JetStream, results Results, stream string, policy backfill.Policy) backfill.DispatcherFactory {
	return func(ctx context.Context) (backfill.Dispatcher, error) {
		return NewDispatcher(ctx, js, results, stream, policy)
	}
}

func (d *Dispatcher) record(r Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outcomes[r.ID] = r.Shipped
	if !r.Shipped && d.policy == backfill.FailFast && d.firstErr == nil {
		d.firstErr = werrors.NewShipError(r.ID, 0, "", errors.New(r.Error))
	}
}

// Enqueue implements backfill.Dispatcher.
func (d *Dispatcher) Enqueue(ctx context.Context, task backfill.Task) error {
	d.mu.Lock()
	firstErr := d.firstErr
	d.mu.Unlock()
	if firstErr != nil {
		return firstErr
	}

	data, err := json.Marshal(Message{RunID: d.runID, Task: task})
	if err == nil {
		_, err = d.js.Publish(ctx, subject(d.stream, d.runID, task.ID), data,
			jetstream.WithExpectStream(d.stream),
			jetstream.WithRetryAttempts(3),
		)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.enqueued++
	if err != nil {
		d.publishFailed++
		log.WithFields(log.Fields{"id": task.ID, "run_id": d.runID}).Errorln(logTag, ": error publishing task:", err)
		if d.policy == backfill.FailFast {
			return werrors.NewShipError(task.ID, 0, "", err)
		}
	}
	return nil
}

// Wait implements backfill.Dispatcher. It returns once the durable consumer has
// no pending or unacknowledged messages left and every task has been reported.
// Tasks whose result never arrived are counted as failed.
func (d *Dispatcher) Wait(ctx context.Context) (backfill.Stats, error) {
	defer d.stop()

	ticker := time.NewTicker(d.PollInterval)
	defer ticker.Stop()

	rounds := 0
	for {
		drained, err := d.drained(ctx)
		if err != nil && ctx.Err() == nil {
			log.Warnln(logTag, ": unable to fetch consumer info:", err)
		}
		if drained {
			stats, missing := d.stats()
			if missing == 0 {
				return stats, d.err()
			}
			rounds++
			if rounds >= graceRounds {
				log.Warnln(logTag, ": no result received for", missing, "tasks of run", d.runID)
				stats.Failed += missing
				return stats, d.err()
			}
		}

		select {
		case <-ctx.Done():
			stats, missing := d.stats()
			if ctx.Err() == context.DeadlineExceeded {
				return stats, werrors.NewDrainTimeoutError(missing)
			}
			return stats, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (d *Dispatcher) drained(ctx context.Context) (bool, error) {
	info, err := d.consumer.Info(ctx)
	if err != nil {
		return false, err
	}
	return info.NumPending == 0 && info.NumAckPending == 0, nil
}

// Progress implements backfill.Progresser.
func (d *Dispatcher) Progress() backfill.Stats {
	stats, _ := d.stats()
	return stats
}

// stats returns the counters and the number of published tasks without a result.
func (d *Dispatcher) stats() (backfill.Stats, int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	stats := backfill.Stats{Enqueued: d.enqueued, Failed: d.publishFailed}
	for _, shipped := range d.outcomes {
		if shipped {
			stats.Shipped++
		} else {
			stats.Failed++
		}
	}
	return stats, stats.Pending()
}

func (d *Dispatcher) err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.firstErr
}
