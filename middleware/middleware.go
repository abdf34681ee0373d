package middleware

import "net/http"

// Middleware is a type that represents a middleware function. A
// middleware usually operates on the request before and after the
// request is served.
type Middleware func(http.HandlerFunc) http.HandlerFunc

// Chainer is implemented by any value that has a Wrap method,
// which wraps a chain of middleware on top of the given handler.
type Chainer interface {
	Wrap(http.HandlerFunc) http.HandlerFunc
}

// Adapter adapts a handler to a set of middleware in a specific order.
type Adapter interface {
	Adapt(http.HandlerFunc, ...Middleware) http.HandlerFunc
}
