// Package http provides the API and metrics servers, their routers and shared middleware.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	encryptionHTTP "github.com/allisson/kagimori/internal/encryption/http"
	"github.com/allisson/kagimori/internal/metrics"
	"github.com/allisson/kagimori/internal/storage"
)

// readinessProbeKey is looked up on every readiness check. Its absence is the normal
// answer; only a backend error marks the server not ready.
const readinessProbeKey = "health/ready"

// Server represents the KMS API HTTP server.
type Server struct {
	store  storage.Storage
	server *http.Server
	router *gin.Engine
	logger *slog.Logger
}

// RouterConfig carries the optional middleware settings of the API router.
type RouterConfig struct {
	CORSEnabled      bool
	CORSAllowOrigins string
	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int
	MetricsEnabled   bool
	MetricsNamespace string
}

// NewServer creates a new API server. store is the low-level storage probed by the
// readiness endpoint.
func NewServer(
	store storage.Storage,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		store:  store,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter builds the gin router with every API route and middleware. ctx bounds
// background work started by middleware, such as rate limiter cleanup.
func (s *Server) SetupRouter(
	ctx context.Context,
	keyHandler *encryptionHTTP.KeyHandler,
	metricsProvider *metrics.Provider,
	cfg RouterConfig,
) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if cors := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); cors != nil {
		router.Use(cors)
	}

	if cfg.MetricsEnabled && metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	if cfg.RateLimitEnabled {
		v1.Use(encryptionHTTP.RateLimitMiddleware(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst, s.logger))
	}

	v1.GET("/kms/status", keyHandler.StatusHandler)

	keys := v1.Group("/keys")
	{
		keys.GET("/:id", keyHandler.GetHandler)
		keys.POST("/:id/encrypt", keyHandler.EncryptHandler)
		keys.POST("/:id/decrypt", keyHandler.DecryptHandler)
		keys.POST("/:id/rotate", keyHandler.RotateHandler)
	}

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the HTTP server. SetupRouter must have been called.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router is not configured")
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

// healthHandler reports liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the storage backend answers.
func (s *Server) readinessHandler(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"storage": "error"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if _, err := s.store.Exists(ctx, readinessProbeKey); err != nil {
		s.logger.Warn("storage readiness check failed", slog.Any("error", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"storage": "error"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": gin.H{"storage": "ok"},
	})
}
