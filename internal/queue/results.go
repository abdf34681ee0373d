package queue

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Result is what a worker reports after handling a task for good.
type Result struct {
	RunID   string `json:"run_id"`
	ID      string `json:"id"`
	Shipped bool   `json:"shipped"`
	Error   string `json:"error,omitempty"`
}

// Results carries task outcomes from the workers back to the dispatcher of the run.
type Results interface {
	Report(r Result) error
	Listen(runID string, fn func(Result)) (stop func(), err error)
}

// NATSResults publishes results on core nats, outside of the stream.
type NATSResults struct {
	nc     *nats.Conn
	prefix string
}

// NewNATSResults returns results published under <stream>_results.<runID>.
func NewNATSResults(nc *nats.Conn, stream string) *NATSResults {
	if stream == "" {
		stream = defaultStream
	}
	return &NATSResults{nc: nc, prefix: stream + "_results"}
}

// Report implements Results.
func (n *NATSResults) Report(r Result) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return n.nc.Publish(fmt.Sprintf("%s.%s", n.prefix, r.RunID), data)
}

// Listen implements Results.
func (n *NATSResults) Listen(runID string, fn func(Result)) (func(), error) {
	sub, err := n.nc.Subscribe(fmt.Sprintf("%s.%s", n.prefix, runID), func(msg *nats.Msg) {
		var r Result
		if err := json.Unmarshal(msg.Data, &r); err != nil {
			log.Warnln(logTag, ": invalid result payload:", err)
			return
		}
		fn(r)
	})
	if err != nil {
		return nil, err
	}
	return func() {
		if err := sub.Unsubscribe(); err != nil {
			log.Debugln(logTag, ": unsubscribing results:", err)
		}
	}, nil
}
