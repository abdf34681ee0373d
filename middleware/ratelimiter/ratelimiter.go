package ratelimiter

import (
	"context"
	"net/http"

	"github.com/appbaseio/world-search/internal/iplookup"
	"github.com/appbaseio/world-search/middleware"
	"github.com/appbaseio/world-search/util"
	log "github.com/sirupsen/logrus"
	"github.com/ulule/limiter"
	"github.com/ulule/limiter/drivers/store/memory"
)

const logTag = "[ratelimiter]"

// Ratelimiter limits the number of operations each client ip can trigger.
type Ratelimiter struct {
	limiter *limiter.Limiter
}

// New returns a rate limiter for a formatted rate such as "10-M".
func New(formatted string) (*Ratelimiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	return &Ratelimiter{limiter: limiter.New(memory.NewStore(), rate)}, nil
}

// Limit returns the middleware enforcing the rate.
func (rl *Ratelimiter) Limit() middleware.Middleware {
	return rl.rateLimit
}

func (rl *Ratelimiter) rateLimit(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := iplookup.FromRequest(r)
		if rl.limitExceeded(r.Context(), key) {
			log.Warnln(logTag, ": rate limit exceeded for", key)
			util.WriteBackMessage(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		h(w, r)
	}
}

func (rl *Ratelimiter) limitExceeded(ctx context.Context, key string) bool {
	c, err := rl.limiter.Peek(ctx, key)
	if err != nil {
		// an error getting the limiter context lets the request through
		log.Errorln(logTag, ":", err)
		return false
	}
	if c.Reached || c.Remaining <= 0 {
		return true
	}
	if _, err := rl.limiter.Get(ctx, key); err != nil {
		log.Errorln(logTag, ":", err)
	}
	return false
}
