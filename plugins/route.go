package plugins

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/appbaseio/world-search/middleware/logger"
	"github.com/appbaseio/world-search/middleware/panic"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
)

// Route is a type that contains information about a route.
type Route struct {
	// Name is the name of the route. In order to avoid conflicts in
	// the router, the name preferably should be a combination of both
	// http method type and the path.
	Name string

	// Methods represents an array of HTTP method type. It is preferable
	// to use values defined in net/http package to avoid typos.
	Methods []string

	// Path is the path that it expects to serve the requests on,
	// declared in the format understood by gorilla/mux.
	Path string

	// HandlerFunc is the handler function that is responsible for
	// responding the request made to this route.
	HandlerFunc http.HandlerFunc

	// Description about this route.
	Description string
}

// RouteBy is the type of a "less" function that defines the ordering of routes.
type RouteBy func(r1, r2 Route) bool

// RouteSort sorts the argument slice according to the function.
func (by RouteBy) RouteSort(routes []Route) {
	sort.Slice(routes, func(i, j int) bool {
		return by(routes[i], routes[j])
	})
}

// Server serves the routes of the loaded plugins.
type Server struct {
	router *mux.Router
	server http.Server
}

// NewServer returns a server listening on address:port.
func NewServer(address string, port int) *Server {
	return &Server{
		router: mux.NewRouter().StrictSlash(true),
		server: http.Server{
			Addr:              fmt.Sprintf("%s:%d", address, port),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Router exposes the router plugins are loaded into.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Handler returns the router wrapped with the cors, recovery and logger middleware.
func (s *Server) Handler() http.Handler {
	// CORS policy
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"HEAD", "GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"*"},
	})

	handler := c.Handler(s.router)
	handler = panic.Recovery(handler)
	handler = logger.Log(handler)
	return handler
}

// Start listens and serves until ctx is done or an interrupt is received,
// then shuts the server down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.Handler()
	log.Infoln(logTag, ": listening on", s.server.Addr)

	idleConnectionsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigint)

		select {
		case <-sigint:
		case <-ctx.Done():
		}

		log.Debugln(logTag, ": going to shutdown the server now")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Errorln(logTag, ": HTTP server Shutdown:", err)
		}
		close(idleConnectionsClosed)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server ListenAndServe: %v", err)
	}
	<-idleConnectionsClosed
	log.Debugln(logTag, ": succesfully closed server")
	return nil
}
