package db

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB stores the document in SQLite, one row per top-level key.
type DB struct {
	db   *sql.DB
	path string
}

func NewSQLiteDB(path string) (*DB, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		// Take the write lock when a transaction starts so CompareAndSet
		// reads and writes under the same lock across processes.
		dsn += "?_busy_timeout=5000&_txlock=immediate"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and orders
	// writers inside this process.
	db.SetMaxOpenConns(1)
	return &DB{db: db, path: path}, nil
}

// Path returns the database file, or "" for in-memory databases.
func (db *DB) Path() string {
	if db.path == ":memory:" || strings.HasPrefix(db.path, "file::memory:") {
		return ""
	}
	return db.path
}

func (db *DB) Migrate() error {
	// Create migrations tracking table if it doesn't exist
	_, err := db.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		migrations = append(migrations, entry.Name())
	}
	sort.Strings(migrations)

	for _, migration := range migrations {
		version := strings.TrimSuffix(migration, ".sql")

		var exists bool
		if err := db.db.QueryRow(`
		    SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = ?)
		`, version).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check if migration has been applied: %w", err)
		}
		if exists {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + migration)
		if err != nil {
			return fmt.Errorf("failed to read migration file: %w", err)
		}

		tx, err := db.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %s: %w", version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to mark migration as applied: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}

		log.Printf("Migration %s applied successfully", version)
	}

	return nil
}

func (db *DB) Get(ctx context.Context, keys ...string) (Document, error) {
	query := "SELECT key, value FROM documents"
	args := make([]any, 0, len(keys))
	if len(keys) > 0 {
		query += " WHERE key IN (?" + strings.Repeat(", ?", len(keys)-1) + ")"
		for _, k := range keys {
			args = append(args, k)
		}
	}
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("failed to close rows: %v", err)
		}
	}()

	doc := make(Document)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan document key: %w", err)
		}
		doc[key] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return doc, nil
}

func (db *DB) Set(ctx context.Context, patch Document) error {
	if err := checkPatch(patch); err != nil {
		return err
	}
	return db.inTx(ctx, func(tx *sql.Tx) error {
		return writePatch(ctx, tx, patch)
	})
}

func (db *DB) CompareAndSet(ctx context.Context, key string, expected json.RawMessage, patch Document) error {
	if err := checkPatch(patch); err != nil {
		return err
	}
	return db.inTx(ctx, func(tx *sql.Tx) error {
		var current json.RawMessage
		var value string
		err := tx.QueryRowContext(ctx, "SELECT value FROM documents WHERE key = ?", key).Scan(&value)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("failed to read %s: %w", key, err)
		default:
			current = json.RawMessage(value)
		}
		if !rawEqual(current, expected) {
			return &ConflictError{Key: key, Expected: string(expected), Current: string(current)}
		}
		return writePatch(ctx, tx, patch)
	})
}

func (db *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func writePatch(ctx context.Context, tx *sql.Tx, patch Document) error {
	now := time.Now().Format(time.RFC3339)
	for key, value := range patch {
		if value == nil {
			if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE key = ?", key); err != nil {
				return fmt.Errorf("failed to delete %s: %w", key, err)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO documents (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, key, string(value), now); err != nil {
			return fmt.Errorf("failed to write %s: %w", key, err)
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}
