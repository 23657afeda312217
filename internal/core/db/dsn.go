package db

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Open builds a gateway from a DSN:
//
//	memory://                     in-process document
//	file:///path/doc.json         JSON file (also any bare *.json path)
//	sqlite:///path/links.db       SQLite (also bare *.db, *.sqlite, *.sqlite3, :memory:)
//	postgres://user@host/db       PostgreSQL
//
// SQLite databases are migrated before they are returned.
func Open(dsn string) (Gateway, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("%w: empty DSN", ErrUnsupportedDSN)
	}

	scheme, rest, hasScheme := strings.Cut(dsn, "://")
	if !hasScheme {
		return openPath(dsn)
	}

	switch strings.ToLower(scheme) {
	case "memory", "mem", "inmem":
		return NewMemoryGateway(), nil
	case "file":
		return NewFileGateway(rest)
	case "sqlite", "sqlite3":
		return openSQLite(rest)
	case "postgres", "postgresql":
		return NewPostgresGateway(dsn)
	default:
		return nil, fmt.Errorf("%w: unknown scheme %q", ErrUnsupportedDSN, scheme)
	}
}

func openPath(path string) (Gateway, error) {
	if path == ":memory:" {
		return openSQLite(path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return NewFileGateway(path)
	case ".db", ".sqlite", ".sqlite3":
		return openSQLite(path)
	default:
		return nil, fmt.Errorf("%w: cannot infer backend for %q", ErrUnsupportedDSN, path)
	}
}

func openSQLite(path string) (Gateway, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty sqlite path", ErrUnsupportedDSN)
	}
	database, err := NewSQLiteDB(path)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return database, nil
}
