// Package database opens the connection pool behind the SQL storage backends.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// defaultPingTimeout bounds the connectivity check when Config.PingTimeout is zero.
const defaultPingTimeout = 5 * time.Second

// Config holds database configuration settings.
type Config struct {
	// Driver is a database/sql driver name: "postgres" or "mysql".
	Driver             string
	ConnectionString   string
	MaxOpenConnections int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	PingTimeout        time.Duration
}

// Connect opens the pool and verifies the server answers. The pool is closed again
// when the ping fails so callers never hold a half-open handle.
func Connect(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.ConnectionString == "" {
		return nil, errors.New("database connection string is empty")
	}

	db, err := sql.Open(cfg.Driver, cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", cfg.Driver, err)
	}

	return db, nil
}
