package sqlstore

import "database/sql"

var mysqlQueries = queries{
	get:    "SELECT store_value FROM kv_store WHERE store_key = ?",
	exists: "SELECT 1 FROM kv_store WHERE store_key = ?",
	set: `INSERT INTO kv_store (store_key, store_value, created_at, updated_at)
		VALUES (?, ?, NOW(6), NOW(6))
		ON DUPLICATE KEY UPDATE store_value = VALUES(store_value), updated_at = NOW(6)`,
	setIfAbsent: `INSERT IGNORE INTO kv_store (store_key, store_value, created_at, updated_at)
		VALUES (?, ?, NOW(6), NOW(6))`,
	delete: "DELETE FROM kv_store WHERE store_key = ?",
}

// NewMySQL creates a Store for MySQL (go-sql-driver/mysql). store_key is VARBINARY so
// comparisons are case-sensitive regardless of the server collation.
func NewMySQL(db *sql.DB) *Store {
	return &Store{db: db, queries: mysqlQueries}
}
