package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/appbaseio/world-search/plugins/backfill"
	"github.com/appbaseio/world-search/util"
	"github.com/nats-io/nats.go/jetstream"
	es7 "github.com/olivere/elastic/v7"
	log "github.com/sirupsen/logrus"
)

// maxRedeliveryDelay caps the delay before a task is redelivered.
const maxRedeliveryDelay = 30 * time.Second

// Worker consumes shipping tasks and hands them to a shipper. Messages are
// acknowledged only after the document was written, so a task is shipped at
// least once.
type Worker struct {
	js         jetstream.JetStream
	shipper    backfill.Shipper
	results    Results
	stream     string
	numWorkers int
	backoff    es7.Backoff

	msgs chan jetstream.Msg
	wg   sync.WaitGroup
}

// NewWorker returns a worker shipping with numWorkers goroutines.
func NewWorker(js jetstream.JetStream, shipper backfill.Shipper, results Results, stream string, numWorkers int) *Worker {
	if stream == "" {
		stream = defaultStream
	}
	if numWorkers <= 0 {
		numWorkers = 8
	}
	return &Worker{
		js:         js,
		shipper:    shipper,
		results:    results,
		stream:     stream,
		numWorkers: numWorkers,
		backoff:    es7.NewExponentialBackoff(time.Second, maxRedeliveryDelay),
	}
}

// Start consumes messages until ctx is cancelled, then waits for the tasks
// being shipped to finish.
func (w *Worker) Start(ctx context.Context) error {
	if err := EnsureStream(ctx, w.js, w.stream); err != nil {
		return err
	}
	consumer, err := EnsureConsumer(ctx, w.js, w.stream)
	if err != nil {
		return err
	}

	w.msgs = make(chan jetstream.Msg, w.numWorkers)
	for i := 0; i < w.numWorkers; i++ {
		w.wg.Add(1)
		go w.loop(ctx)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		select {
		case w.msgs <- msg:
		case <-ctx.Done():
			// left unacknowledged, redelivered after the ack wait
		}
	})
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}
	log.Infoln(logTag, ": worker started with", w.numWorkers, "goroutines on stream", w.stream)

	<-ctx.Done()

	log.Infoln(logTag, ": stopping worker")
	cc.Stop()
	w.wg.Wait()
	return nil
}

func (w *Worker) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case msg := <-w.msgs:
			w.Handle(context.WithoutCancel(ctx), msg)
		case <-ctx.Done():
			return
		}
	}
}

// Handle ships the task carried by msg. An unavailable engine gets the
// message redelivered with a delay until maxDeliver is reached. Any other
// failure terminates the message.
func (w *Worker) Handle(ctx context.Context, msg jetstream.Msg) {
	var m Message
	if err := json.Unmarshal(msg.Data(), &m); err != nil {
		log.Errorln(logTag, ": invalid task payload:", err)
		if err := msg.Term(); err != nil {
			log.Warnln(logTag, ": error terminating message:", err)
		}
		return
	}

	ctx = util.NewRunIDContext(ctx, m.RunID)
	err := w.shipper.Ship(ctx, m.Task)
	if err == nil {
		if err := msg.Ack(); err != nil {
			log.Warnln(logTag, ": error acknowledging task", m.Task.ID, ":", err)
		}
		w.report(Result{RunID: m.RunID, ID: m.Task.ID, Shipped: true})
		return
	}

	if util.IsEngineUnavailable(err) {
		md, metaErr := msg.Metadata()
		if metaErr == nil && int(md.NumDelivered) < maxDeliver {
			wait, ok := w.backoff.Next(int(md.NumDelivered))
			if !ok {
				wait = maxRedeliveryDelay
			}
			log.WithFields(log.Fields{"id": m.Task.ID, "run_id": m.RunID}).
				Warnln(logTag, ": engine unavailable, redelivering in", wait)
			if err := msg.NakWithDelay(wait); err != nil {
				log.Warnln(logTag, ": error rejecting message:", err)
			}
			return
		}
	}

	if err := msg.Term(); err != nil {
		log.Warnln(logTag, ": error terminating message:", err)
	}
	w.report(Result{RunID: m.RunID, ID: m.Task.ID, Error: err.Error()})
}

func (w *Worker) report(r Result) {
	if w.results == nil {
		return
	}
	if err := w.results.Report(r); err != nil {
		log.Warnln(logTag, ": error reporting result of", r.ID, ":", err)
	}
}
