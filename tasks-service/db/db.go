package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Connect opens a pool and checks it with a ping. Requests beyond maxOpen
// wait for a free connection; no wait timeout is set.
func Connect(driverName, dsn string, maxOpen int) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if maxOpen < 1 || isPrivateMemorySQLite(driverName, dsn) {
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(max(maxOpen/2, 1))
	return db, nil
}

// each connection to a private in-memory sqlite database gets its own empty
// database, so the pool must stay at a single connection
func isPrivateMemorySQLite(driverName, dsn string) bool {
	if driverName != "sqlite3" || strings.Contains(dsn, "cache=shared") {
		return false
	}
	return dsn == ":memory:" || strings.HasPrefix(dsn, "file::memory:") || strings.Contains(dsn, "mode=memory")
}

var schemas = map[string][]string{
	"postgres": {
		`CREATE TABLE IF NOT EXISTS tasks (
  id BIGSERIAL PRIMARY KEY,
  text TEXT NOT NULL,
  completed BOOLEAN NOT NULL DEFAULT FALSE,
  user_id TEXT NOT NULL,
  created_at BIGINT NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_user_id_created_at ON tasks (user_id, created_at)`,
	},
	"sqlite3": {
		`CREATE TABLE IF NOT EXISTS tasks (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  text TEXT NOT NULL,
  completed BOOLEAN NOT NULL DEFAULT FALSE,
  user_id TEXT NOT NULL,
  created_at BIGINT NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_user_id_created_at ON tasks (user_id, created_at)`,
	},
}

// EnsureSchema creates the tasks table and its owner index if missing.
func EnsureSchema(ctx context.Context, db *sql.DB, driverName string) error {
	stmts, ok := schemas[driverName]
	if !ok {
		return fmt.Errorf("no schema for driver %q", driverName)
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
