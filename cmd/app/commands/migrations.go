package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations creates the kv_store table used by the postgres and mysql storage
// drivers. Migrations live under dir/postgresql and dir/mysql. Returns nil when the
// schema is already current.
func RunMigrations(logger *slog.Logger, dir, driver, connectionString string) error {
	if driver == "" {
		return errors.New("no SQL storage driver configured (STORAGE_DRIVERS must include postgres or mysql)")
	}

	logger.Info("running database migrations", slog.String("driver", driver))

	migrationsPath, databaseURL, err := migrationTarget(dir, driver, connectionString)
	if err != nil {
		return err
	}

	m, err := migrate.New(migrationsPath, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer closeMigrate(m, logger)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("migrations completed successfully")
	return nil
}

// migrationTarget resolves the migrate source URL and database URL for driver.
// The mysql driver DSN is accepted without the mysql:// scheme migrate needs.
func migrationTarget(dir, driver, connectionString string) (string, string, error) {
	switch driver {
	case "postgres":
		return "file://" + filepath.ToSlash(filepath.Join(dir, "postgresql")), connectionString, nil
	case "mysql":
		databaseURL := connectionString
		if !strings.HasPrefix(databaseURL, "mysql://") {
			databaseURL = "mysql://" + databaseURL
		}
		return "file://" + filepath.ToSlash(filepath.Join(dir, "mysql")), databaseURL, nil
	default:
		return "", "", fmt.Errorf("invalid SQL driver: %s (valid options: postgres, mysql)", driver)
	}
}
