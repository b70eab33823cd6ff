// Package http provides HTTP server implementation and request handlers.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RouteRegistrar mounts a group of routes on the router. The DI container
// registers one per feature so the server stays ignorant of handler wiring.
type RouteRegistrar func(router *gin.Engine)

// Server represents the HTTP server.
type Server struct {
	db         *sql.DB
	server     *http.Server
	router     *gin.Engine
	logger     *slog.Logger
	middleware []gin.HandlerFunc
	registrars []RouteRegistrar
}

// NewServer creates a new HTTP server. The database handle backs the
// readiness probe; route registrars mount the API surface.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
	registrars ...RouteRegistrar,
) *Server {
	return &Server{
		db:         db,
		logger:     logger,
		registrars: registrars,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Use appends global middleware applied before any route. Must be called
// before Start.
func (s *Server) Use(middleware ...gin.HandlerFunc) {
	for _, m := range middleware {
		if m != nil {
			s.middleware = append(s.middleware, m)
		}
	}
}

// buildRouter assembles the gin engine with the standard middleware stack,
// health probes, and the registered feature routes.
func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))
	router.Use(s.middleware...)

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	for _, register := range s.registrars {
		register(router)
	}

	return router
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the server can serve traffic. The
// database is the only hard dependency checked here; Redis outages degrade
// specific flows but must not take the whole server out of rotation.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{"database": "ok"}

	ready := s.db != nil
	if ready {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		ready = s.db.PingContext(ctx) == nil
	}

	if !ready {
		components["database"] = "error"
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": components,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": components,
	})
}

// GetHandler returns the router, building it on first use. Used by tests to
// serve the application without binding a port.
func (s *Server) GetHandler() http.Handler {
	if s.router == nil {
		s.router = s.buildRouter()
	}
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		s.router = s.buildRouter()
	}
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
