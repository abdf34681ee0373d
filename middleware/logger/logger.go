package logger

import (
	"net/http"
	"time"

	"github.com/appbaseio/world-search/internal/iplookup"
	log "github.com/sirupsen/logrus"
)

const logTag = "[logger]"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Log logs the start and the end of every request along with its status and latency.
func Log(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Debugln(logTag, ": started", r.Method, r.URL.Path)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)

		log.WithFields(log.Fields{
			"ip":     iplookup.FromRequest(r),
			"method": r.Method,
			"path":   r.URL.Path,
			"status": rec.status,
			"took":   time.Since(start).String(),
		}).Infoln(logTag, ": finished", r.Method, r.URL.Path)
	})
}
