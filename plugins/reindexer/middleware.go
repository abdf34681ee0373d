package reindexer

import (
	"net/http"

	"github.com/appbaseio/world-search/middleware"
	"github.com/appbaseio/world-search/middleware/order"
	"github.com/appbaseio/world-search/middleware/ratelimiter"
)

type chain struct {
	order.Fifo
	list []middleware.Middleware
}

func (c *chain) Wrap(h http.HandlerFunc) http.HandlerFunc {
	return c.Adapt(h, c.list...)
}

// SetRateLimit limits how often each client can trigger a run.
func (rx *Reindexer) SetRateLimit(rl *ratelimiter.Ratelimiter) {
	rx.limit = rl
}

// runChain wraps the handlers that start a run.
func (rx *Reindexer) runChain() *chain {
	c := &chain{}
	if rx.limit != nil {
		c.list = append(c.list, rx.limit.Limit())
	}
	return c
}
