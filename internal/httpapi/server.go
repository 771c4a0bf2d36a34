// Package httpapi serves the REST API the client stores talk to.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-timeoff/internal/commands"
	"github.com/goliatone/go-timeoff/internal/inbox"
	"github.com/goliatone/go-timeoff/internal/workflow"
	"github.com/goliatone/go-timeoff/pkg/api"
	"github.com/goliatone/go-timeoff/pkg/auth"
	"github.com/goliatone/go-timeoff/pkg/interfaces/logger"
	"github.com/goliatone/go-timeoff/pkg/interfaces/store"
)

// Dependencies wires services into the server.
type Dependencies struct {
	Users    store.UserRepository
	Workflow *workflow.Service
	Inbox    *inbox.Service
	Commands *commands.Catalog
	Issuer   *auth.Issuer
	Logger   logger.Logger
}

// Options tune the listener.
type Options struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server represents the REST server.
type Server struct {
	users    store.UserRepository
	workflow *workflow.Service
	inbox    *inbox.Service
	commands *commands.Catalog
	issuer   *auth.Issuer
	logger   logger.Logger
	opts     Options
	server   *http.Server
}

var errDependencies = errors.New("httpapi: users, workflow, inbox, commands and issuer are required")

// NewServer validates dependencies and returns a server ready to Start.
func NewServer(deps Dependencies, opts Options) (*Server, error) {
	if deps.Users == nil || deps.Workflow == nil || deps.Inbox == nil || deps.Commands == nil || deps.Issuer == nil {
		return nil, errDependencies
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}
	s := &Server{
		users:    deps.Users,
		workflow: deps.Workflow,
		inbox:    deps.Inbox,
		commands: deps.Commands,
		issuer:   deps.Issuer,
		logger:   deps.Logger,
		opts:     opts,
	}
	s.server = &http.Server{
		Handler:      s.Router(),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Start listens on addr and blocks until the server stops.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve handles connections from ln until Stop is called. A server that
// was already stopped returns nil straight away.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting http server", logger.Field{Key: "addr", Value: ln.Addr().String()})
	err := s.server.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping http server")
	return s.server.Shutdown(ctx)
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.observe)

	router.HandleFunc(api.PathHealth, s.handleHealth).Methods(http.MethodGet)
	router.Handle(api.PathMetrics, promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc(api.PathToken, s.handleToken).Methods(http.MethodPost)

	protected := router.NewRoute().Subrouter()
	protected.Use(s.authenticate)

	protected.HandleFunc(api.PathRequests, s.handleListRequests).Methods(http.MethodGet)
	protected.HandleFunc(api.PathRequests, s.handleSubmitRequest).Methods(http.MethodPost)
	protected.HandleFunc(api.PathRequests+"/{id}/{decision:approve|reject}", s.handleReviewRequest).Methods(http.MethodPost)

	protected.HandleFunc(api.PathNotifications, s.handleListNotifications).Methods(http.MethodGet)
	protected.HandleFunc(api.PathUnreadCount, s.handleUnreadCount).Methods(http.MethodGet)
	protected.HandleFunc(api.PathMarkAllRead, s.handleMarkAllRead).Methods(http.MethodPost)
	protected.HandleFunc(api.PathNotifications+"/{id}/read", s.handleMarkRead).Methods(http.MethodPost)

	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeResponse(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"time":   time.Now().UTC(),
	})
}
