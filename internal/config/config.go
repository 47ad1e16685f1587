// Package config provides application configuration through environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"

	cryptoDomain "github.com/allisson/kagimori/internal/crypto/domain"
)

// Storage driver names accepted in STORAGE_DRIVERS.
const (
	DriverFile     = "file"
	DriverEtcd     = "etcd"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMemory   = "memory"
)

var knownDrivers = []string{DriverFile, DriverEtcd, DriverPostgres, DriverMySQL, DriverMemory}

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all application configuration.
type Config struct {
	// ServerHost is the host address the server will bind to.
	ServerHost string
	// ServerPort is the port number the server will listen on.
	ServerPort int

	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// KEKs is the keyring in "<uuid>:<base64 tagged key>,..." form.
	KEKs string
	// ActiveKEKID names the KEK used for new writes.
	ActiveKEKID string
	// KEKFile is a YAML keyring; when set it takes precedence over KEKs.
	KEKFile string
	// KMSKeyURI, when set, names the gocloud.dev keeper that wraps KEK material.
	KMSKeyURI string

	// DEKAlgorithm is the algorithm of newly created DEKs.
	DEKAlgorithm string

	// StorageDrivers lists the backends to write to. More than one gives a compound
	// store that reads from the first.
	StorageDrivers []string
	// StorageFileRoot is the directory of the file backend.
	StorageFileRoot string

	// EtcdEndpoints lists the etcd cluster members.
	EtcdEndpoints []string
	// EtcdDialTimeout bounds the initial etcd connection.
	EtcdDialTimeout time.Duration
	// EtcdPrefix namespaces every key written to etcd.
	EtcdPrefix string

	// DBConnectionString is the connection string of the postgres or mysql backend.
	DBConnectionString string
	// DBMaxOpenConnections is the maximum number of open connections to the database.
	DBMaxOpenConnections int
	// DBMaxIdleConnections is the maximum number of idle connections in the database pool.
	DBMaxIdleConnections int
	// DBConnMaxLifetime is the maximum amount of time a connection may be reused.
	DBConnMaxLifetime time.Duration

	// AuditLogEnabled routes audit events to the application log.
	AuditLogEnabled bool
	// AuditLogSigningEnabled signs every audit event with a key derived from the
	// active KEK.
	AuditLogSigningEnabled bool

	// RateLimitEnabled indicates whether per-IP rate limiting of /v1 is enabled.
	RateLimitEnabled bool
	// RateLimitRequestsPerSec is the number of requests allowed per second per client IP.
	RateLimitRequestsPerSec float64
	// RateLimitBurst is the burst size of each client IP.
	RateLimitBurst int

	// CORSEnabled indicates whether CORS is enabled.
	CORSEnabled bool
	// CORSAllowOrigins is a comma-separated list of allowed origins for CORS.
	CORSAllowOrigins string

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
	// MetricsPort is the port number for the metrics server.
	MetricsPort int

	// ShutdownTimeout bounds graceful shutdown of the servers.
	ShutdownTimeout time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	loadDotEnv()

	return &Config{
		ServerHost: env.GetString("SERVER_HOST", "0.0.0.0"),
		ServerPort: env.GetInt("SERVER_PORT", 8080),

		LogLevel: env.GetString("LOG_LEVEL", "info"),

		// KEK keyring
		KEKs:        env.GetString("KEKS", ""),
		ActiveKEKID: env.GetString("ACTIVE_KEK_ID", ""),
		KEKFile:     env.GetString("KEK_FILE", ""),
		KMSKeyURI:   env.GetString("KMS_KEY_URI", ""),

		DEKAlgorithm: env.GetString("DEK_ALGORITHM", "chacha20-poly1305"),

		// Storage
		StorageDrivers:  splitList(env.GetString("STORAGE_DRIVERS", DriverFile)),
		StorageFileRoot: env.GetString("STORAGE_FILE_ROOT", "./data"),

		EtcdEndpoints:   splitList(env.GetString("ETCD_ENDPOINTS", "localhost:2379")),
		EtcdDialTimeout: env.GetDuration("ETCD_DIAL_TIMEOUT_SECONDS", 5, time.Second),
		EtcdPrefix:      env.GetString("ETCD_PREFIX", "/kagimori/"),

		DBConnectionString:   env.GetString("DB_CONNECTION_STRING", ""),
		DBMaxOpenConnections: env.GetInt("DB_MAX_OPEN_CONNECTIONS", 25),
		DBMaxIdleConnections: env.GetInt("DB_MAX_IDLE_CONNECTIONS", 5),
		DBConnMaxLifetime:    env.GetDuration("DB_CONN_MAX_LIFETIME", 5, time.Minute),

		// Audit
		AuditLogEnabled:        env.GetBool("AUDIT_LOG_ENABLED", true),
		AuditLogSigningEnabled: env.GetBool("AUDIT_LOG_SIGNING_ENABLED", false),

		// Rate Limiting
		RateLimitEnabled:        env.GetBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequestsPerSec: env.GetFloat64("RATE_LIMIT_REQUESTS_PER_SEC", 50.0),
		RateLimitBurst:          env.GetInt("RATE_LIMIT_BURST", 100),

		// CORS
		CORSEnabled:      env.GetBool("CORS_ENABLED", false),
		CORSAllowOrigins: env.GetString("CORS_ALLOW_ORIGINS", ""),

		// Metrics
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "kagimori"),
		MetricsPort:      env.GetInt("METRICS_PORT", 8081),

		ShutdownTimeout: env.GetDuration("SHUTDOWN_TIMEOUT_SECONDS", 10, time.Second),
	}
}

// Validate rejects combinations that cannot start. Keyring contents are checked when
// the keyring is loaded.
func (c *Config) Validate() error {
	if len(c.StorageDrivers) == 0 {
		return fmt.Errorf("%w: STORAGE_DRIVERS is empty", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.StorageDrivers))
	for _, driver := range c.StorageDrivers {
		if !slices.Contains(knownDrivers, driver) {
			return fmt.Errorf("%w: unknown storage driver %q (valid options: %s)",
				ErrInvalidConfig, driver, strings.Join(knownDrivers, ", "))
		}
		if seen[driver] {
			return fmt.Errorf("%w: storage driver %q listed twice", ErrInvalidConfig, driver)
		}
		seen[driver] = true
	}

	if seen[DriverPostgres] && seen[DriverMySQL] {
		return fmt.Errorf("%w: postgres and mysql share DB_CONNECTION_STRING, pick one", ErrInvalidConfig)
	}
	if c.SQLDriver() != "" && c.DBConnectionString == "" {
		return fmt.Errorf("%w: DB_CONNECTION_STRING is required by the %s driver", ErrInvalidConfig, c.SQLDriver())
	}
	if seen[DriverEtcd] && len(c.EtcdEndpoints) == 0 {
		return fmt.Errorf("%w: ETCD_ENDPOINTS is required by the etcd driver", ErrInvalidConfig)
	}

	alg, err := cryptoDomain.ParseAlgorithm(c.DEKAlgorithm)
	if err != nil {
		return fmt.Errorf("%w: DEK_ALGORITHM: %w", ErrInvalidConfig, err)
	}
	if !alg.IsDataAlgorithm() {
		return fmt.Errorf("%w: DEK_ALGORITHM %s cannot encrypt data", ErrInvalidConfig, alg)
	}

	if c.RateLimitEnabled && (c.RateLimitRequestsPerSec <= 0 || c.RateLimitBurst <= 0) {
		return fmt.Errorf("%w: rate limit requires positive RATE_LIMIT_REQUESTS_PER_SEC and RATE_LIMIT_BURST",
			ErrInvalidConfig)
	}

	return nil
}

// SQLDriver returns the database/sql driver named in StorageDrivers, or "" when no
// SQL backend is configured.
func (c *Config) SQLDriver() string {
	for _, driver := range c.StorageDrivers {
		if driver == DriverPostgres || driver == DriverMySQL {
			return driver
		}
	}
	return ""
}

// GetGinMode returns the appropriate Gin mode based on log level.
func (c *Config) GetGinMode() string {
	if c.LogLevel == "debug" {
		return "debug"
	}
	return "release"
}

func splitList(value string) []string {
	var items []string
	for part := range strings.SplitSeq(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadDotEnv loads the nearest .env file found walking up from the working directory.
// Variables already set in the environment win.
func loadDotEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}

	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
