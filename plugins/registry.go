package plugins

import (
	"sort"
	"strconv"

	"github.com/appbaseio/world-search/middleware/path"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const logTag = "[plugins]"

// Plugin is a type that holds information about the plugin.
type Plugin interface {
	// Name returns the name of the plugin. It must be unique.
	Name() string

	// Routes returns the http routes that a plugin handles.
	Routes() []Route
}

// LoadPlugin registers the routes of p to the router.
func LoadPlugin(router *mux.Router, p Plugin) error {
	log.Infoln(logTag, ": loading plugin", p.Name())
	routes := p.Routes()
	RouteBy(func(r1, r2 Route) bool { return r1.Path < r2.Path }).RouteSort(routes)
	for _, r := range routes {
		err := router.Methods(r.Methods...).
			Name(r.Name).
			Path(r.Path).
			HandlerFunc(path.Clean(r.HandlerFunc)).
			GetError()
		if err != nil {
			return err
		}
		log.Debugln(logTag, ":", r.Methods, r.Path, "->", r.Description)
	}
	return nil
}

// ListPluginsStr returns a string listing the given plugins.
func ListPluginsStr(pl []Plugin) string {
	names := make([]string, len(pl))
	for i, p := range pl {
		names[i] = p.Name()
	}
	sort.Strings(names)
	str := "Loaded plugins:\n"
	for i, name := range names {
		str += "\t" + strconv.Itoa(i+1) + ". " + name + "\n"
	}
	return str
}
