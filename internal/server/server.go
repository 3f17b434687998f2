// Package server runs the HTTP server and manages its lifecycle.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/matiasleandrokruk/shopwise/internal/api"
	"github.com/matiasleandrokruk/shopwise/internal/infra/eventbus"
)

// Config holds HTTP server configuration.
type Config struct {
	Host              string
	Port              int
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	// WriteTimeout bounds a whole response. Zero leaves search streams
	// open for as long as the model keeps producing.
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns default HTTP server configuration.
func DefaultConfig() Config {
	return Config{
		Host:              "0.0.0.0",
		Port:              8080,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   10 * time.Second,
	}
}

// Server wraps the HTTP server, its event bus and the database.
type Server struct {
	config Config
	db     *sql.DB
	bus    *eventbus.Bus
	http   *http.Server
	log    logrus.FieldLogger
	// stopWorkers ends the background workers started by the router.
	stopWorkers context.CancelFunc
}

// NewServer creates a new HTTP server serving the API built from deps. When
// deps.Bus is nil the server creates the event bus and closes it on shutdown.
func NewServer(deps api.Deps, config Config) *Server {
	log := deps.Log
	if log == nil {
		log = logrus.StandardLogger()
		deps.Log = log
	}
	var bus *eventbus.Bus
	if deps.Bus == nil {
		bus = eventbus.New(log)
		deps.Bus = bus
	}
	workers, stop := context.WithCancel(context.Background())
	router := api.NewRouter(workers, deps)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:           router,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
		ReadTimeout:       config.ReadTimeout,
		WriteTimeout:      config.WriteTimeout,
		IdleTimeout:       config.IdleTimeout,
	}

	return &Server{
		config:      config,
		db:          deps.DB,
		bus:         bus,
		http:        httpServer,
		log:         log.WithField("component", "server"),
		stopWorkers: stop,
	}
}

// Addr is the configured listen address.
func (s *Server) Addr() string { return s.http.Addr }

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.http.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully within ShutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", ln.Addr().String()).Info("starting HTTP server")
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.stopWorkers()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, stops background workers, closes
// the event bus and closes the database connection.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down server")

	err := s.http.Shutdown(ctx)
	s.stopWorkers()
	if s.bus != nil {
		s.bus.Close()
		s.log.WithField("dropped_events", s.bus.Dropped()).Info("event bus closed")
	}
	if err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("database close error: %w", err)
		}
	}

	s.log.Info("server shutdown complete")
	return nil
}
