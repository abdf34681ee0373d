package reindexer

import (
	"net/http"

	"github.com/appbaseio/world-search/plugins"
)

func (rx *Reindexer) routes() []plugins.Route {
	run := rx.runChain().Wrap
	routes := []plugins.Route{
		{
			Name:        "Create index",
			Methods:     []string{http.MethodPost},
			Path:        "/_world/index",
			HandlerFunc: run(rx.createIndex()),
			Description: "Creates the first world index and binds both aliases to it, unless they are already bound.",
		},
		{
			Name:        "Reindex",
			Methods:     []string{http.MethodPost},
			Path:        "/_world/reindex",
			HandlerFunc: run(rx.reindexHandler()),
			Description: "Starts a zero downtime reindex of the world data in the background.",
		},
		{
			Name:        "Status",
			Methods:     []string{http.MethodGet},
			Path:        "/_world/status",
			HandlerFunc: rx.status(),
			Description: "Returns the summary of the run in progress or of the last one.",
		},
		{
			Name:        "Aliases",
			Methods:     []string{http.MethodGet},
			Path:        "/_world/aliases",
			HandlerFunc: rx.aliases(),
			Description: "Returns the indices the write and read aliases point to.",
		},
	}
	return routes
}
