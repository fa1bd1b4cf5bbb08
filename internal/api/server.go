package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/logging"
	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/metrics"
	"github.com/nerrad567/kobayashi-signals/internal/session"
)

// Server timeouts.
const (
	gracefulShutdownTimeout = 5 * time.Second
	readTimeout             = 5 * time.Second
	writeTimeout            = 10 * time.Second
	idleTimeout             = 60 * time.Second
)

// StateSource reports the broker connection state. *session.Dispatcher satisfies it.
type StateSource interface {
	State() session.State
}

// HealthChecker probes the transport. *mqtt.Client satisfies it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the status server.
type Deps struct {
	Addr   string
	Logger *logging.Logger
	State  StateSource

	// Transport is optional; when set /health also reports its check.
	Transport HealthChecker
	Metrics   *metrics.Recorder
	Role      string
	ClientID  string
	Version   string
}

// Server is the HTTP status server.
//
// It is created with New(), started with Start() and stopped with Close().
type Server struct {
	addr      string
	logger    *logging.Logger
	state     StateSource
	transport HealthChecker
	metrics   *metrics.Recorder
	role      string
	clientID  string
	version   string

	server   *http.Server
	listener net.Listener
}

// New creates a status server with the given dependencies.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.State == nil {
		return nil, fmt.Errorf("state source is required")
	}
	if deps.Addr == "" {
		return nil, fmt.Errorf("listen address is required")
	}

	return &Server{
		addr:      deps.Addr,
		logger:    deps.Logger.With("component", "status"),
		state:     deps.State,
		transport: deps.Transport,
		metrics:   deps.Metrics,
		role:      deps.Role,
		clientID:  deps.ClientID,
		version:   deps.Version,
	}, nil
}

// Start binds the listen address and serves in a background goroutine.
//
// Returns:
//   - error: If the address cannot be bound (port in use, etc.)
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	s.logger.Info("status server listening", "address", ln.Addr().String())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server error", "error", err)
		}
	}()

	return nil
}

// Run starts the server, blocks until ctx is cancelled and then shuts it down.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Close()
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Close gracefully shuts down the server.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("status server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down status server: %w", err)
	}
	return nil
}
