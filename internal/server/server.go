// Package server hosts the coordinator behind an HTTP listener: a WebSocket
// endpoint for client sessions and a small admin API for operator tooling.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/avelar/parley/internal/config"
	"github.com/avelar/parley/internal/coordinator"
)

// Server holds the HTTP listener and the coordinator it fronts.
type Server struct {
	E     *echo.Echo
	Coord *coordinator.Coordinator
	Cfg   *config.Config

	mu      sync.Mutex
	started bool
}

// New creates a Server around an existing coordinator.
func New(cfg *config.Config, coord *coordinator.Coordinator) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	s := &Server{
		E:     e,
		Coord: coord,
		Cfg:   cfg,
	}
	s.registerRoutes()
	return s
}

// Start opens the listener. It blocks until the server is shut down.
func (s *Server) Start() error {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()

	err := s.E.Start(s.Cfg.Addr())
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop closes the listener and disconnects every active session. Calling it
// when the server never started is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	wasStarted := s.started
	s.started = false
	s.mu.Unlock()

	if !wasStarted {
		return nil
	}
	s.Coord.DisconnectAll()
	return s.E.Shutdown(ctx)
}

// Run starts the server and blocks until an interrupt or terminate signal,
// then shuts down gracefully.
func (s *Server) Run() {
	go func() {
		if err := s.Start(); err != nil {
			slog.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Stop(ctx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}
