package app

import (
	"fmt"

	auditService "github.com/allisson/kagimori/internal/audit/service"
	cryptoDomain "github.com/allisson/kagimori/internal/crypto/domain"
	encryptionHTTP "github.com/allisson/kagimori/internal/encryption/http"
	encryptionUseCase "github.com/allisson/kagimori/internal/encryption/usecase"
	"github.com/allisson/kagimori/internal/http"
	"github.com/allisson/kagimori/internal/metrics"
)

// MetricsProvider returns the Prometheus-backed meter provider, or nil when metrics
// are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	if err := c.initOnce(&c.metricsProviderInit, "metricsProvider", func() error {
		if !c.config.MetricsEnabled {
			return nil
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			return fmt.Errorf("failed to create metrics provider: %w", err)
		}
		c.metricsProvider = provider
		return nil
	}); err != nil {
		return nil, err
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the key operation recorder, a no-op when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	if err := c.initOnce(&c.businessMetricsInit, "businessMetrics", func() error {
		provider, err := c.MetricsProvider()
		if err != nil {
			return err
		}
		if provider == nil {
			c.businessMetrics = metrics.NewNoOpBusinessMetrics()
			return nil
		}

		c.businessMetrics, err = metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			return fmt.Errorf("failed to create business metrics: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return c.businessMetrics, nil
}

// AuditLogger returns the audit sink: the application log, optionally signed with a
// key derived from the active KEK, or a no-op when auditing is disabled.
func (c *Container) AuditLogger() (auditService.Logger, error) {
	if err := c.initOnce(&c.auditLoggerInit, "auditLogger", func() error {
		if !c.config.AuditLogEnabled {
			c.auditLogger = auditService.NewNoopLogger()
			return nil
		}

		sink := auditService.NewSlogLogger(c.Logger())
		if !c.config.AuditLogSigningEnabled {
			c.auditLogger = sink
			return nil
		}

		keyring, err := c.Keyring()
		if err != nil {
			return fmt.Errorf("failed to get keyring for audit signing: %w", err)
		}
		kek, ok := keyring.Default()
		if !ok {
			return cryptoDomain.ErrActiveKekNotFound
		}

		signing, err := auditService.NewSigningLogger(sink, kek.Key)
		if err != nil {
			return err
		}
		c.signingLogger = signing
		c.auditLogger = signing
		return nil
	}); err != nil {
		return nil, err
	}
	return c.auditLogger, nil
}

// Encryptor returns the DEK lifecycle use case, instrumented when metrics are enabled.
func (c *Container) Encryptor() (encryptionUseCase.Encryptor, error) {
	if err := c.initOnce(&c.encryptorInit, "encryptor", func() error {
		store, err := c.Storage()
		if err != nil {
			return fmt.Errorf("failed to get storage for encryptor: %w", err)
		}

		auditLogger, err := c.AuditLogger()
		if err != nil {
			return fmt.Errorf("failed to get audit logger for encryptor: %w", err)
		}

		alg, err := cryptoDomain.ParseAlgorithm(c.config.DEKAlgorithm)
		if err != nil {
			return err
		}

		encryptor, err := encryptionUseCase.NewEncryptor(store, auditLogger, alg, c.Logger())
		if err != nil {
			return err
		}

		if c.config.MetricsEnabled {
			businessMetrics, err := c.BusinessMetrics()
			if err != nil {
				return err
			}
			encryptor = encryptionUseCase.NewEncryptorWithMetrics(encryptor, businessMetrics)
		}

		c.encryptor = encryptor
		return nil
	}); err != nil {
		return nil, err
	}
	return c.encryptor, nil
}

// KeyHandler returns the HTTP handler of the KMS API.
func (c *Container) KeyHandler() (*encryptionHTTP.KeyHandler, error) {
	if err := c.initOnce(&c.keyHandlerInit, "keyHandler", func() error {
		encryptor, err := c.Encryptor()
		if err != nil {
			return err
		}
		kek, err := c.KEKCipher()
		if err != nil {
			return err
		}
		c.keyHandler = encryptionHTTP.NewKeyHandler(encryptor, kek, c.Logger())
		return nil
	}); err != nil {
		return nil, err
	}
	return c.keyHandler, nil
}

// HTTPServer returns the API server with its router configured.
func (c *Container) HTTPServer() (*http.Server, error) {
	if err := c.initOnce(&c.httpServerInit, "httpServer", func() error {
		keyHandler, err := c.KeyHandler()
		if err != nil {
			return fmt.Errorf("failed to get key handler: %w", err)
		}
		store, err := c.LowLevelStorage()
		if err != nil {
			return err
		}
		provider, err := c.MetricsProvider()
		if err != nil {
			return err
		}

		server := http.NewServer(store, c.config.ServerHost, c.config.ServerPort, c.Logger())
		server.SetupRouter(c.ctx, keyHandler, provider, http.RouterConfig{
			CORSEnabled:      c.config.CORSEnabled,
			CORSAllowOrigins: c.config.CORSAllowOrigins,
			RateLimitEnabled: c.config.RateLimitEnabled,
			RateLimitRPS:     c.config.RateLimitRequestsPerSec,
			RateLimitBurst:   c.config.RateLimitBurst,
			MetricsEnabled:   c.config.MetricsEnabled,
			MetricsNamespace: c.config.MetricsNamespace,
		})
		c.httpServer = server
		return nil
	}); err != nil {
		return nil, err
	}
	return c.httpServer, nil
}

// MetricsServer returns the Prometheus server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	if err := c.initOnce(&c.metricsServerInit, "metricsServer", func() error {
		provider, err := c.MetricsProvider()
		if err != nil || provider == nil {
			return err
		}
		c.metricsServer = http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider)
		return nil
	}); err != nil {
		return nil, err
	}
	return c.metricsServer, nil
}
