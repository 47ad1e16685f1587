// Package app provides the dependency injection container that assembles the KMS from
// configuration. Components are created on first access and shared afterwards.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	clientv3 "go.etcd.io/etcd/client/v3"

	auditService "github.com/allisson/kagimori/internal/audit/service"
	"github.com/allisson/kagimori/internal/config"
	cryptoDomain "github.com/allisson/kagimori/internal/crypto/domain"
	cryptoService "github.com/allisson/kagimori/internal/crypto/service"
	encryptionHTTP "github.com/allisson/kagimori/internal/encryption/http"
	encryptionUseCase "github.com/allisson/kagimori/internal/encryption/usecase"
	"github.com/allisson/kagimori/internal/http"
	"github.com/allisson/kagimori/internal/metrics"
	"github.com/allisson/kagimori/internal/storage"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	config *config.Config

	// Background work (rate limiter cleanup) stops when the container shuts down.
	ctx    context.Context
	cancel context.CancelFunc

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	etcdClient      *clientv3.Client
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Crypto
	kmsService cryptoService.KMSService
	keyring    *cryptoDomain.Keyring
	kekCipher  *cryptoService.RotatableCipher

	// Storage
	lowLevelStorage storage.Storage
	storage         storage.Storage

	// Encryption
	auditLogger   auditService.Logger
	signingLogger *auditService.SigningLogger
	encryptor     encryptionUseCase.Encryptor
	keyHandler    *encryptionHTTP.KeyHandler

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                  sync.Mutex
	loggerInit          sync.Once
	dbInit              sync.Once
	etcdClientInit      sync.Once
	metricsProviderInit sync.Once
	businessMetricsInit sync.Once
	kmsServiceInit      sync.Once
	keyringInit         sync.Once
	kekCipherInit       sync.Once
	lowLevelStorageInit sync.Once
	storageInit         sync.Once
	auditLoggerInit     sync.Once
	encryptorInit       sync.Once
	keyHandlerInit      sync.Once
	httpServerInit      sync.Once
	metricsServerInit   sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	ctx, cancel := context.WithCancel(context.Background())
	return &Container{
		config:     cfg,
		ctx:        ctx,
		cancel:     cancel,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// initOnce runs init through once and remembers its error under name, so every later
// call of the same getter fails the same way.
func (c *Container) initOnce(once *sync.Once, name string, init func() error) error {
	once.Do(func() {
		if err := init(); err != nil {
			c.mu.Lock()
			c.initErrors[name] = err
			c.mu.Unlock()
		}
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initErrors[name]
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.etcdClient != nil {
		if err := c.etcdClient.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("etcd client close: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if c.signingLogger != nil {
		c.signingLogger.Close()
	}

	if c.keyring != nil {
		c.keyring.Close()
	}

	return errors.Join(shutdownErrors...)
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}
