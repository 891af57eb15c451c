// Package server hosts the chain node HTTP and WebSocket surface.
//
// The node owns its journal and runtime: NewServerWithContext opens the
// SQLite journal, replays it into a fresh runtime, and serves the JSON API
// on top. Handlers stay transport-only and delegate execution to the app
// service.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/louisbranch/cairn/internal/platform/timeouts"
	"github.com/louisbranch/cairn/internal/services/chain/app"
	"github.com/louisbranch/cairn/internal/services/chain/storage/sqlite"
)

// Config defines the inputs for the chain node transport boundary.
type Config struct {
	HTTPAddr          string
	DBPath            string
	Genesis           []byte
	Grant             GrantConfig
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Server hosts the chain node HTTP process.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration
	httpServer      *http.Server
	store           *sqlite.Store
	service         *app.Service
}

// NewServer builds a configured chain node server.
func NewServer(config Config) (*Server, error) {
	return NewServerWithContext(context.Background(), config)
}

// NewServerWithContext builds a configured chain node server with an
// explicit context. The context bounds the journal replay on boot.
func NewServerWithContext(ctx context.Context, config Config) (*Server, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if strings.TrimSpace(config.DBPath) == "" {
		return nil, errors.New("journal path is required")
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}

	store, err := sqlite.Open(config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", config.DBPath, err)
	}

	service, err := app.New(ctx, store, config.Genesis)
	if err != nil {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("close chain journal: %v", closeErr)
		}
		return nil, fmt.Errorf("boot chain service: %w", err)
	}

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           newHandler(service, newFeedHub(), config.Grant),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	return &Server{
		httpAddr:        httpAddr,
		shutdownTimeout: config.ShutdownTimeout,
		httpServer:      httpServer,
		store:           store,
		service:         service,
	}, nil
}

// Run creates and serves a chain node until the context ends.
func Run(ctx context.Context, config Config) error {
	server, err := NewServerWithContext(ctx, config)
	if err != nil {
		return fmt.Errorf("init chain server: %w", err)
	}
	defer server.Close()

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve chain: %w", err)
	}
	return nil
}

// Service exposes the booted app service for embedding callers.
func (s *Server) Service() *app.Service {
	if s == nil {
		return nil
	}
	return s.service
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("chain server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("chain node listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close chain journal: %v", err)
		}
	}
}
