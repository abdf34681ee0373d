package reindexer

import (
	"errors"
	"net/http"

	werrors "github.com/appbaseio/world-search/errors"
	"github.com/appbaseio/world-search/util"
	log "github.com/sirupsen/logrus"
)

func (rx *Reindexer) createIndex() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := rx.CreateIndex(r.Context())
		if errors.Is(err, werrors.ErrReindexInProgress) {
			util.WriteBackError(w, err.Error(), http.StatusConflict)
			return
		}
		if err != nil {
			log.Errorln(logTag, ":", err)
			util.WriteBackJSON(w, summary, errorCode(err))
			return
		}
		util.WriteBackJSON(w, summary, http.StatusOK)
	}
}

func (rx *Reindexer) reindexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID, err := rx.Start(r.Context())
		if errors.Is(err, werrors.ErrReindexInProgress) {
			util.WriteBackError(w, err.Error(), http.StatusConflict)
			return
		}
		if err != nil {
			log.Errorln(logTag, ":", err)
			util.WriteBackError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		util.WriteBackJSON(w, map[string]interface{}{
			"run_id": runID,
			"status": "running",
		}, http.StatusAccepted)
	}
}

func (rx *Reindexer) status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary := rx.Status()
		if summary == nil {
			util.WriteBackError(w, "No run has been started yet", http.StatusNotFound)
			return
		}
		util.WriteBackJSON(w, summary, http.StatusOK)
	}
}

func (rx *Reindexer) aliases() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bindings, err := rx.Aliases(r.Context())
		if err != nil {
			log.Errorln(logTag, ":", err)
			util.WriteBackError(w, err.Error(), errorCode(err))
			return
		}
		util.WriteBackJSON(w, bindings, http.StatusOK)
	}
}

func errorCode(err error) int {
	if util.IsEngineUnavailable(err) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
