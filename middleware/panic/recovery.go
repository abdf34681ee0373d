package panic

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/appbaseio/world-search/util"
	log "github.com/sirupsen/logrus"
)

// Recovery is a middleware that wraps an http handler to recover from panics.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			var err error
			switch t := r.(type) {
			case string:
				err = errors.New(t)
			case error:
				err = t
			default:
				err = fmt.Errorf("unknown error occurred: %v", t)
			}
			log.Errorln("[recovery] : panic serving", req.Method, req.URL.Path, ":", err, "\n", string(debug.Stack()))
			util.WriteBackError(w, err.Error(), http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, req)
	})
}
