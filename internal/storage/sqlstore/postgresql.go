package sqlstore

import "database/sql"

var postgresQueries = queries{
	get:    `SELECT store_value FROM kv_store WHERE store_key = $1`,
	exists: `SELECT 1 FROM kv_store WHERE store_key = $1`,
	set: `INSERT INTO kv_store (store_key, store_value, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (store_key) DO UPDATE SET store_value = EXCLUDED.store_value, updated_at = NOW()`,
	setIfAbsent: `INSERT INTO kv_store (store_key, store_value, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (store_key) DO NOTHING`,
	delete: `DELETE FROM kv_store WHERE store_key = $1`,
}

// NewPostgreSQL creates a Store for PostgreSQL (lib/pq).
func NewPostgreSQL(db *sql.DB) *Store {
	return &Store{db: db, queries: postgresQueries}
}
