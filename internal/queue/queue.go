package queue

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/appbaseio/world-search/plugins/backfill"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	log "github.com/sirupsen/logrus"
)

const logTag = "[queue]"

const (
	defaultStream = "WORLD_SHIP"
	consumerName  = "world-shipper"
	maxDeliver    = 5
)

// Message is the payload published for every task.
type Message struct {
	RunID string        `json:"run_id"`
	Task  backfill.Task `json:"task"`
}

// Connect dials the NATS server at url and returns both the connection and its
// JetStream context.
func Connect(url string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.Name("world-search"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnln(logTag, ": disconnected from nats:", err)
			}
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to nats at %s: %w", url, err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("creating jetstream context: %w", err)
	}
	return nc, js, nil
}

// EnsureStream creates or updates the work queue stream holding shipping tasks.
func EnsureStream(ctx context.Context, js jetstream.JetStream, stream string) error {
	if stream == "" {
		stream = defaultStream
	}
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      stream,
		Subjects:  []string{stream + ".>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.WorkQueuePolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to ensure stream %s: %w", stream, err)
	}
	return nil
}

// EnsureConsumer creates or updates the durable consumer shared by all workers.
func EnsureConsumer(ctx context.Context, js jetstream.JetStream, stream string) (jetstream.Consumer, error) {
	consumer, err := js.CreateOrUpdateConsumer(ctx, stream, jetstream.ConsumerConfig{
		Durable:       consumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       time.Minute,
		MaxDeliver:    maxDeliver,
		FilterSubject: stream + ".ship.>",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure consumer %s: %w", consumerName, err)
	}
	return consumer, nil
}

// subject returns <stream>.ship.<runID>.<base64 id>. Document ids are encoded
// so they can never introduce extra tokens.
func subject(stream, runID, id string) string {
	return fmt.Sprintf("%s.ship.%s.%s", stream, runID, base64.URLEncoding.EncodeToString([]byte(id)))
}
