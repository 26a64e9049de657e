// Package sqlite implements the repository interfaces on SQLite.
//
// The driver is modernc.org/sqlite, a pure Go translation of SQLite, so the
// binary builds without a C toolchain. Pass ":memory:" as the path for a
// throwaway database in tests.
package sqlite

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps the sql.DB connection pool and implements
// repository.SnippetRepository.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and brings its schema up to date.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// sql.Open is lazy; Ping surfaces a bad path now instead of on the
	// first request.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// An in-memory database exists per connection, so the pool must never
	// open a second one.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	// WAL lets readers proceed while a snippet is being written.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. The health endpoint
// uses it.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// migrate creates the schema. Every step is idempotent so it runs on each
// start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS snippets (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			code        TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_snippets_created_at ON snippets(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating snippets table: %w", err)
	}

	// Columns added after the first schema. Databases created before them
	// get the defaults.
	columns := []struct {
		name       string
		definition string
	}{
		{"language", "TEXT NOT NULL DEFAULT 'javascript'"},
		{"edit_key_hash", "TEXT NOT NULL DEFAULT ''"},
	}
	for _, c := range columns {
		if err := db.addColumnIfNotExists("snippets", c.name, c.definition); err != nil {
			return fmt.Errorf("adding %s to snippets: %w", c.name, err)
		}
	}

	_, err = db.conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_snippets_language ON snippets(language, created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating snippets language index: %w", err)
	}

	return nil
}

// addColumnIfNotExists makes an ALTER TABLE ADD COLUMN safe to repeat.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}
