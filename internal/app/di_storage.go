package app

import (
	"database/sql"
	"fmt"
	"log/slog"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/allisson/kagimori/internal/config"
	"github.com/allisson/kagimori/internal/database"
	"github.com/allisson/kagimori/internal/storage"
	"github.com/allisson/kagimori/internal/storage/etcd"
	"github.com/allisson/kagimori/internal/storage/file"
	"github.com/allisson/kagimori/internal/storage/sqlstore"
)

// DB returns the connection of the postgres or mysql storage driver.
func (c *Container) DB() (*sql.DB, error) {
	if err := c.initOnce(&c.dbInit, "db", func() error {
		driver := c.config.SQLDriver()
		if driver == "" {
			return fmt.Errorf("no SQL storage driver configured")
		}

		db, err := database.Connect(c.ctx, database.Config{
			Driver:             driver,
			ConnectionString:   c.config.DBConnectionString,
			MaxOpenConnections: c.config.DBMaxOpenConnections,
			MaxIdleConnections: c.config.DBMaxIdleConnections,
			ConnMaxLifetime:    c.config.DBConnMaxLifetime,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		c.db = db
		return nil
	}); err != nil {
		return nil, err
	}
	return c.db, nil
}

// EtcdClient returns the client of the etcd storage driver.
func (c *Container) EtcdClient() (*clientv3.Client, error) {
	if err := c.initOnce(&c.etcdClientInit, "etcdClient", func() error {
		client, err := etcd.Connect(etcd.Config{
			Endpoints:   c.config.EtcdEndpoints,
			DialTimeout: c.config.EtcdDialTimeout,
			Prefix:      c.config.EtcdPrefix,
		})
		if err != nil {
			return err
		}
		c.etcdClient = client
		return nil
	}); err != nil {
		return nil, err
	}
	return c.etcdClient, nil
}

// LowLevelStorage returns the unencrypted backend: the single configured driver, or a
// compound store when several are listed. Values written here are plaintext.
func (c *Container) LowLevelStorage() (storage.Storage, error) {
	if err := c.initOnce(&c.lowLevelStorageInit, "lowLevelStorage", func() error {
		store, err := c.initLowLevelStorage()
		c.lowLevelStorage = store
		return err
	}); err != nil {
		return nil, err
	}
	return c.lowLevelStorage, nil
}

// Storage returns the KEK-encrypted storage every DEK record goes through.
func (c *Container) Storage() (storage.Storage, error) {
	if err := c.initOnce(&c.storageInit, "storage", func() error {
		inner, err := c.LowLevelStorage()
		if err != nil {
			return fmt.Errorf("failed to get low-level storage: %w", err)
		}

		kek, err := c.KEKCipher()
		if err != nil {
			return fmt.Errorf("failed to get kek cipher for storage: %w", err)
		}

		c.storage = storage.NewCryptedStorage(inner, kek)
		return nil
	}); err != nil {
		return nil, err
	}
	return c.storage, nil
}

func (c *Container) initLowLevelStorage() (storage.Storage, error) {
	stores := make([]storage.Storage, 0, len(c.config.StorageDrivers))
	for _, driver := range c.config.StorageDrivers {
		store, err := c.openDriver(driver)
		if err != nil {
			return nil, fmt.Errorf("storage driver %s: %w", driver, err)
		}
		stores = append(stores, store)
	}

	c.Logger().Info("storage configured", slog.Any("drivers", c.config.StorageDrivers))

	if len(stores) == 1 {
		return stores[0], nil
	}
	return storage.NewCompound(stores...)
}

func (c *Container) openDriver(driver string) (storage.Storage, error) {
	switch driver {
	case config.DriverFile:
		return file.New(c.config.StorageFileRoot)
	case config.DriverMemory:
		c.Logger().Warn("memory storage driver loses every key on restart")
		return storage.NewMemory(), nil
	case config.DriverEtcd:
		client, err := c.EtcdClient()
		if err != nil {
			return nil, err
		}
		return etcd.New(client, c.config.EtcdPrefix), nil
	case config.DriverPostgres:
		db, err := c.DB()
		if err != nil {
			return nil, err
		}
		return sqlstore.NewPostgreSQL(db), nil
	case config.DriverMySQL:
		db, err := c.DB()
		if err != nil {
			return nil, err
		}
		return sqlstore.NewMySQL(db), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
