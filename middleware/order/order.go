package order

import (
	"net/http"

	"github.com/appbaseio/world-search/middleware"
)

// Fifo is a type that implements Adapter. The request passes through
// the middleware in the sequence in which they are given.
type Fifo string

// Adapt adapts the handler in First-In, First-Out manner.
func (f *Fifo) Adapt(h http.HandlerFunc, m ...middleware.Middleware) http.HandlerFunc {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}
