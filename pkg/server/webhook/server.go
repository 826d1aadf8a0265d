// Copyright (c) 2025 The centralised-logging Authors
//
// This file is part of centralised-logging.
//
// centralised-logging is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact the centralised-logging maintainers for commercial licensing options.

// Package webhook receives bucket notifications over HTTP. S3-compatible
// stores such as MinIO post the same Records payload that S3 delivers to
// Lambda, so the receiver runs the same rename pipeline.
package webhook

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/adapters"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/audit"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/server/middleware"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/trigger"
)

// Server represents the webhook HTTP server
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	handler    *Handler
	config     *ServerConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	// Addr is the listen address (default: ":8080")
	Addr string

	// EnableLogging enables request logging middleware
	EnableLogging bool

	// EnableRateLimit enables rate limiting middleware
	EnableRateLimit bool

	// RateLimitConfig is the rate limiting configuration
	RateLimitConfig *middleware.RateLimitConfig

	// MaxRequestSize is the maximum request body size in bytes (default: 1MB)
	MaxRequestSize int64

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration

	// WriteTimeout bounds the response, which includes renaming the batch
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout time.Duration

	// Mode sets the Gin mode: "debug", "release", or "test" (default: "release")
	Mode string

	// Logger is the pluggable logger adapter (default: DefaultLogger)
	Logger adapters.Logger

	// Authenticator guards POST /events (default: NoOpAuthenticator)
	Authenticator adapters.Authenticator

	// AuditLogger records every notification request when set
	AuditLogger audit.AuditLogger
}

// DefaultServerConfig returns a ServerConfig with sensible defaults
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Addr:            ":8080",
		EnableLogging:   true,
		RateLimitConfig: middleware.DefaultRateLimitConfig(),
		MaxRequestSize:  1 << 20,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    5 * time.Minute,
		IdleTimeout:     120 * time.Second,
		Mode:            gin.ReleaseMode,
		Logger:          adapters.NewDefaultLogger(),
		Authenticator:   adapters.NewNoOpAuthenticator(),
	}
}

// NewServer creates a new webhook server
func NewServer(processor trigger.Processor, config *ServerConfig) (*Server, error) {
	if config == nil {
		config = DefaultServerConfig()
	}
	if config.Logger == nil {
		config.Logger = adapters.NewDefaultLogger()
	}
	if config.Authenticator == nil {
		config.Authenticator = adapters.NewNoOpAuthenticator()
	}
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	handler, err := NewHandler(processor, config.Logger)
	if err != nil {
		return nil, err
	}

	router := gin.New()

	// Middleware order: recovery, request ID, audit, logging, rate limit, size limit
	router.Use(RecoveryMiddleware(config.Logger))
	router.Use(middleware.RequestIDMiddleware())
	if config.AuditLogger != nil {
		router.Use(audit.AuditMiddleware(config.AuditLogger))
	}
	if config.EnableLogging {
		router.Use(LoggingMiddleware(config.Logger))
	}
	if config.EnableRateLimit {
		router.Use(middleware.RateLimitMiddleware(config.RateLimitConfig, config.Logger))
	}
	if config.MaxRequestSize > 0 {
		router.Use(RequestSizeLimitMiddleware(config.MaxRequestSize))
	}

	s := &Server{
		router:  router,
		handler: handler,
		config:  config,
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         config.Addr,
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handler.HealthCheck)

	events := s.router.Group("/")
	events.Use(AuthenticationMiddleware(s.config.Authenticator, s.config.Logger))
	events.POST("/events", s.handler.HandleEvents)
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.config.Logger.Info(context.Background(), "webhook server listening",
		adapters.Field{Key: "addr", Value: s.config.Addr})

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight batches.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Router returns the underlying Gin router (useful for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}
