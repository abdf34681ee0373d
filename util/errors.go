package util

import (
	"context"
	"errors"
	"net"
	"net/http"

	werrors "github.com/appbaseio/world-search/errors"
	es7 "github.com/olivere/elastic/v7"
)

// ClassifyEngineError wraps err in an EngineUnavailableError when it denotes a
// transient failure: no reachable node, timeouts, throttling or a 5xx gateway status.
// Any other error is returned as is.
func ClassifyEngineError(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsEngineUnavailable(err) {
		return err
	}
	if isTransient(err) {
		return werrors.NewEngineUnavailableError(op, err)
	}
	return err
}

// IsEngineUnavailable reports whether err was classified as a transient engine failure.
func IsEngineUnavailable(err error) bool {
	return werrors.IsEngineUnavailable(err)
}

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if es7.IsConnErr(err) || es7.IsTimeout(err) {
		return true
	}
	for _, code := range []int{
		http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
	} {
		if es7.IsStatusCode(err, code) {
			return true
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// EngineErrorDetails extracts the http status and the error type returned by the
// engine, if err came from a response.
func EngineErrorDetails(err error) (int, string) {
	var e *es7.Error
	if !errors.As(err, &e) {
		return 0, ""
	}
	if e.Details == nil {
		return e.Status, ""
	}
	return e.Status, e.Details.Type
}
