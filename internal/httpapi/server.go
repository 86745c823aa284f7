// Package httpapi provides the ambient read-only /healthz and /status
// HTTP endpoints described in SPEC_FULL.md §C.2: a loopback-bound chi
// router with a huma-documented API surface, mirroring the shape of
// the codebase's own generic HTTP server.
package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/http/middleware"
)

// Config holds the HTTP server's bind address and timeouts. The default
// host is loopback-only: this surface is a liveness/status probe, not a
// public API (SPEC_FULL.md §C.2).
type Config struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config bound to loopback on port 9091.
func DefaultConfig() Config {
	return Config{
		Host:            "127.0.0.1",
		Port:            9091,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server is the ambient status/health HTTP server.
type Server struct {
	config     Config
	router     *chi.Mux
	api        huma.API
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer builds a Server and registers its routes against status.
func NewServer(config Config, status *StatusHandler, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if version == "" {
		version = "dev"
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(logger))

	humaConfig := huma.DefaultConfig("telegram-reels-pipeline status API", version)
	humaConfig.Info.Description = "Read-only liveness and run-status introspection"
	humaConfig.DocsPath = ""
	api := humachi.New(router, humaConfig)

	status.Register(api)

	return &Server{config: config, router: router, api: api, logger: logger}
}

// Router exposes the chi router for tests.
func (s *Server) Router() *chi.Mux { return s.router }

// Start begins serving, blocking until ListenAndServe returns.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	s.logger.Info("starting status http server", slog.String("address", addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("starting status server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// ListenAndServe starts the server and blocks until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()
	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}
