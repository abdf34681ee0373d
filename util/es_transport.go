package util

import (
	"net/http"
)

const opaqueIDHeader = "X-Opaque-Id"

// OpaqueIDTransport will be passed to olivere/elasticsearch. It tags every request that
// belongs to a reindex run with the run id, so the engine's task list and slow logs
// can be traced back to the run.
type OpaqueIDTransport struct {
	originalTransport http.RoundTripper
}

// RoundTrip will add the run id header to every ES request made with a run context.
func (ct *OpaqueIDTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	runID, err := RunIDFromContext(req.Context())
	if err == nil && req.Header.Get(opaqueIDHeader) == "" {
		// RoundTrippers must not modify the caller's request.
		req = req.Clone(req.Context())
		req.Header.Set(opaqueIDHeader, runID)
	}
	return ct.originalTransport.RoundTrip(req)
}
