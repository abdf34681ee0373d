package util

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"time"

	"github.com/olivere/elastic/v7"
	log "github.com/sirupsen/logrus"
)

// Retrier is a custom Retry implementation.
type Retrier struct {
	backoff elastic.Backoff
}

// NewRetrier returns a new retrier with exponential backoff strategy.
func NewRetrier() *Retrier {
	return &Retrier{
		elastic.NewExponentialBackoff(10*time.Millisecond, 8*time.Second),
	}
}

// Retry is a custom retry implementation.
func (r *Retrier) Retry(ctx context.Context, retry int, req *http.Request, resp *http.Response, err error) (time.Duration, bool, error) {
	// Fail hard on a specific error
	if errors.Is(err, syscall.ECONNREFUSED) {
		return 0, false, fmt.Errorf("Elasticsearch or network down: %w", err)
	}

	// Stop after 5 retries
	if retry >= 5 {
		return 0, false, nil
	}

	// Let the backoff strategy decide how long to wait and whether to go on
	wait, ok := r.backoff.Next(retry)
	return wait, ok, nil
}

// RetryUnavailable runs op until it succeeds, fails with an error other than an unavailable
// engine, the attempts are exhausted or ctx is done. The last error is returned.
func RetryUnavailable(ctx context.Context, attempts int, backoff elastic.Backoff, op func() error) error {
	var err error
	for retry := 0; retry < attempts; retry++ {
		err = op()
		if err == nil || !IsEngineUnavailable(err) {
			return err
		}
		wait, ok := backoff.Next(retry)
		if !ok {
			return err
		}
		log.Warnln(logTag, ": engine unavailable, retrying in", wait, ":", err)
		select {
		case <-ctx.Done():
			return err
		case <-time.After(wait):
		}
	}
	return err
}
