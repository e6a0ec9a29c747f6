// Package api exposes the subscription workflow over HTTP. The transport
// layer is deliberately thin: it decodes requests, delegates to the
// workflow, and maps the error taxonomy onto status codes.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ignite/newsletter-service/internal/config"
	"github.com/ignite/newsletter-service/internal/pkg/logger"
)

// Server is the HTTP server wrapping the chi router.
type Server struct {
	config config.ServerConfig
	server *http.Server
}

// NewServer creates the API server around the given handlers.
func NewServer(cfg config.ServerConfig, h *Handlers) *Server {
	router := SetupRoutes(h)
	return &Server{
		config: cfg,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.GetHost(), cfg.Port),
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start begins serving. It blocks until the server stops.
func (s *Server) Start() error {
	logger.Info("http server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
