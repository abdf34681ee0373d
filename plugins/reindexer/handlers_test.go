package reindexer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/appbaseio/world-search/middleware/ratelimiter"
	"github.com/appbaseio/world-search/model/reindex"
	"github.com/appbaseio/world-search/plugins"
	"github.com/appbaseio/world-search/plugins/backfill"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, rx *Reindexer) *mux.Router {
	router := mux.NewRouter()
	require.NoError(t, plugins.LoadPlugin(router, rx))
	return router
}

func serve(router http.Handler, method, path string) *httptest.ResponseRecorder {
	rw := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	router.ServeHTTP(rw, req)
	return rw
}

func TestStatusHandlerBeforeAnyRun(t *testing.T) {
	router := newTestRouter(t, newTestReindexer(t, newFakeEngine(), backfill.BestEffort))

	rw := serve(router, http.MethodGet, "/_world/status")
	assert.Equal(t, http.StatusNotFound, rw.Code)
	assert.Equal(t, `{"error":{"code":404,"message":"No run has been started yet","status":"Not Found"}}`, rw.Body.String())
}

func TestCreateIndexHandler(t *testing.T) {
	engine := newFakeEngine()
	router := newTestRouter(t, newTestReindexer(t, engine, backfill.BestEffort))

	rw := serve(router, http.MethodPost, "/_world/index")
	require.Equal(t, http.StatusOK, rw.Code)

	var summary reindex.Summary
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &summary))
	assert.Equal(t, reindex.StatusSuccess, summary.Status)
	assert.Equal(t, reindex.KindBootstrap, summary.Kind)
	assert.Equal(t, "world_100", summary.NewIndex)

	rw = serve(router, http.MethodGet, "/_world/aliases")
	require.Equal(t, http.StatusOK, rw.Code)
	assert.JSONEq(t, `[{"alias":"world_write","index":"world_100"},{"alias":"world_read","index":"world_100"}]`, rw.Body.String())

	rw = serve(router, http.MethodGet, "/_world/status")
	assert.Equal(t, http.StatusOK, rw.Code)
}

func TestAliasesHandlerUnavailable(t *testing.T) {
	engine := newFakeEngine()
	engine.unavailable = resolveAttempts
	router := newTestRouter(t, newTestReindexer(t, engine, backfill.BestEffort))

	rw := serve(router, http.MethodGet, "/_world/aliases")
	assert.Equal(t, http.StatusServiceUnavailable, rw.Code)
}

func TestReindexHandler(t *testing.T) {
	engine := newFakeEngine()
	engine.seed("world_90", 5, "world_write", "world_read")
	rx := newTestReindexer(t, engine, backfill.BestEffort)

	release := make(chan struct{})
	rx.pipeline = observedPipeline{before: func() { <-release }, next: rx.pipeline}
	router := newTestRouter(t, rx)

	rw := serve(router, http.MethodPost, "/_world/reindex")
	require.Equal(t, http.StatusAccepted, rw.Code)
	var accepted struct {
		RunID  string `json:"run_id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &accepted))
	assert.NotEmpty(t, accepted.RunID)
	assert.Equal(t, "running", accepted.Status)

	rw = serve(router, http.MethodPost, "/_world/reindex")
	assert.Equal(t, http.StatusConflict, rw.Code)
	rw = serve(router, http.MethodPost, "/_world/index")
	assert.Equal(t, http.StatusConflict, rw.Code)

	close(release)
	require.Eventually(t, func() bool {
		s := rx.Status()
		return s != nil && s.Status == reindex.StatusSuccess && s.RunID == accepted.RunID
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRunRoutesAreRateLimited(t *testing.T) {
	rx := newTestReindexer(t, newFakeEngine(), backfill.BestEffort)
	rl, err := ratelimiter.New("1-M")
	require.NoError(t, err)
	rx.SetRateLimit(rl)
	router := newTestRouter(t, rx)

	rw := serve(router, http.MethodPost, "/_world/index")
	assert.Equal(t, http.StatusOK, rw.Code)
	rw = serve(router, http.MethodPost, "/_world/index")
	assert.Equal(t, http.StatusTooManyRequests, rw.Code)

	// reads are never limited
	rw = serve(router, http.MethodGet, "/_world/status")
	assert.Equal(t, http.StatusOK, rw.Code)
}

func TestStartIgnoresRequestCancellation(t *testing.T) {
	engine := newFakeEngine()
	rx := newTestReindexer(t, engine, backfill.BestEffort)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := rx.Start(ctx)
	require.NoError(t, err)
	cancel()

	require.Eventually(t, func() bool {
		s := rx.Status()
		return s != nil && s.Status == reindex.StatusSuccess
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "world_100", engine.alias("world_read"))
}
