package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Timeouts bound the phases of an HTTP exchange.
type Timeouts struct {
	ReadHeader time.Duration
	Read       time.Duration
	Idle       time.Duration
	// Request is the handler budget under /api/v1. Queued syncs return
	// immediately, so only inline reads and pushes come close to it.
	Request time.Duration
}

// DefaultTimeouts returns the timeouts used when none are configured.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		ReadHeader: 10 * time.Second,
		Read:       30 * time.Second,
		Idle:       120 * time.Second,
		Request:    60 * time.Second,
	}
}

// write leaves headroom over the handler budget so a timed out handler
// can still deliver its 503.
func (t Timeouts) write() time.Duration {
	return t.Request + 5*time.Second
}

// Server owns the listener and middleware shared by every route.
type Server struct {
	router   chi.Router
	logger   *slog.Logger
	addr     string
	timeouts Timeouts

	mu         sync.Mutex
	httpServer *http.Server
	closed     bool
}

// NewServer creates a Server that will listen on addr.
func NewServer(addr string, timeouts Timeouts, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)

	return &Server{
		router:   router,
		addr:     addr,
		timeouts: timeouts,
		logger:   logger,
	}
}

// Router returns the chi router for registering routes.
func (s *Server) Router() chi.Router {
	return s.router
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown. It returns nil once the
// server has been shut down, including when Shutdown ran first.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return nil
	}
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.timeouts.ReadHeader,
		ReadTimeout:       s.timeouts.Read,
		WriteTimeout:      s.timeouts.write(),
		IdleTimeout:       s.timeouts.Idle,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", slog.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server. A later Serve returns at once.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.logger.Info("shutting down HTTP server")
	return srv.Shutdown(ctx)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}
