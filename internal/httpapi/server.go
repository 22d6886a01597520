// Package httpapi is the REST API of the daemon: state and device
// introspection, focus control, layouts, visibility and the mapping
// configurator. The UI WebSocket is mounted at /ws.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"kioskpad/internal/navigator"
	"kioskpad/internal/service"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 5 * time.Second

// requestTimeout bounds each round trip into the input service.
const requestTimeout = 2 * time.Second

// Backend is the input service as the API sees it. *service.Service
// implements it.
type Backend interface {
	Do(ctx context.Context, ev service.Event) (any, error)
	Snapshot(ctx context.Context) (service.State, error)
	Mapping(ctx context.Context, deviceKey string) (service.MappingInfo, error)
	StartConfigurator(ctx context.Context, slot int) (service.ConfiguratorInfo, error)
	AbortConfigurator(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Listen  string
	Backend Backend
	Layouts *navigator.LayoutStore
	// WS is mounted at /ws when set.
	WS      http.Handler
	Logger  *slog.Logger
	Version string
}

// Server is the HTTP API server.
type Server struct {
	listen  string
	backend Backend
	layouts *navigator.LayoutStore
	ws      http.Handler
	logger  *slog.Logger
	version string

	server *http.Server
}

// New creates a server. It does not listen until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if deps.Layouts == nil {
		return nil, fmt.Errorf("layout store is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		listen:  deps.Listen,
		backend: deps.Backend,
		layouts: deps.Layouts,
		ws:      deps.WS,
		logger:  logger,
		version: deps.Version,
	}, nil
}

// Handler returns the router without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening in a background goroutine.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.listen,
		Handler:           s.buildRouter(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.listen)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Close gracefully shuts down the server.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
