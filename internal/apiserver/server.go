// Package apiserver exposes the chat surface over HTTP: health and agent
// metadata endpoints, the SSE chat endpoint, session listing, and Prometheus
// metrics.
package apiserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/enercomp/enercomp/internal/chat"
	"github.com/enercomp/enercomp/internal/logging"
	"github.com/enercomp/enercomp/internal/session"
)

// AgentInfo describes the deployed agent for GET /agent-info.
type AgentInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Model       string   `json:"model"`
	Tools       []string `json:"tools"`
}

// Server handles HTTP API requests.
type Server struct {
	port     int
	server   *http.Server
	logger   *logging.Logger
	router   *http.ServeMux
	chat     *chat.Handler
	sessions session.Store
	info     AgentInfo
}

// New creates the API server and registers all routes.
func New(port int, chatHandler *chat.Handler, sessions session.Store, info AgentInfo) *Server {
	s := &Server{
		port:     port,
		logger:   logging.GetLogger("api"),
		router:   http.NewServeMux(),
		chat:     chatHandler,
		sessions: sessions,
		info:     info,
	}

	s.registerHandlers()
	s.configureHTTPServer(port)

	return s
}

// configureHTTPServer creates the HTTP server with timeouts sized for
// long-running report generation over SSE.
func (s *Server) configureHTTPServer(port int) {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
}

// Start begins listening for requests. It returns immediately; serve errors
// are logged.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting API server on port %d", s.port)

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error: %v", err)
		}
	}()

	s.logger.Info("API server started and listening on port %d", s.port)
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")

	done := make(chan error, 1)
	go func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done <- s.server.Shutdown(shutdownCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			s.logger.Error("HTTP server shutdown error: %v", err)
			return err
		}
		s.logger.Info("API server stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("API server shutdown timeout")
		return ctx.Err()
	}
}

// GetPort returns the port the server is listening on.
func (s *Server) GetPort() int {
	return s.port
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Name returns the component name.
func (s *Server) Name() string {
	return "API Server"
}
