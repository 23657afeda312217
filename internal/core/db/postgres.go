package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/lib/pq"
)

const postgresTableName = "linksaver_documents"

type sqlOpenFunc func(driverName, dsn string) (*sql.DB, error)

// PostgresGateway stores the document in PostgreSQL, one row per top-level
// key. The table is created on first use.
type PostgresGateway struct {
	dsn       string
	tableName string
	openDB    sqlOpenFunc

	initOnce sync.Once
	initErr  error
	db       *sql.DB
}

func NewPostgresGateway(dsn string) (*PostgresGateway, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("%w: empty postgres DSN", ErrUnsupportedDSN)
	}
	return &PostgresGateway{
		dsn:       dsn,
		tableName: postgresTableName,
		openDB:    sql.Open,
	}, nil
}

func (p *PostgresGateway) Get(ctx context.Context, keys ...string) (Document, error) {
	if err := p.ensureReady(ctx); err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT doc_key, value FROM %s", quoteIdentifier(p.tableName))
	var args []any
	if len(keys) > 0 {
		query += " WHERE doc_key = ANY($1)"
		args = append(args, pq.Array(keys))
	}
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	defer rows.Close()

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

func (p *PostgresGateway) Set(ctx context.Context, patch Document) error {
	if err := checkPatch(patch); err != nil {
		return err
	}
	if err := p.ensureReady(ctx); err != nil {
		return err
	}
	return p.inTx(ctx, func(tx *sql.Tx) error {
		return p.writePatch(ctx, tx, patch)
	})
}

func (p *PostgresGateway) CompareAndSet(ctx context.Context, key string, expected json.RawMessage, patch Document) error {
	if err := checkPatch(patch); err != nil {
		return err
	}
	if err := p.ensureReady(ctx); err != nil {
		return err
	}
	return p.inTx(ctx, func(tx *sql.Tx) error {
		// The row may not exist yet, so row locks are not enough.
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", lockKey(p.tableName, key)); err != nil {
			return fmt.Errorf("failed to lock %s: %w", key, err)
		}
		var current json.RawMessage
		var value string
		query := fmt.Sprintf("SELECT value FROM %s WHERE doc_key = $1", quoteIdentifier(p.tableName))
		err := tx.QueryRowContext(ctx, query, key).Scan(&value)
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
		return p.writePatch(ctx, tx, patch)
	})
}

func (p *PostgresGateway) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

func (p *PostgresGateway) writePatch(ctx context.Context, tx *sql.Tx, patch Document) error {
	table := quoteIdentifier(p.tableName)
	for key, value := range patch {
		if value == nil {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE doc_key = $1", table), key); err != nil {
				return fmt.Errorf("failed to delete %s: %w", key, err)
			}
			continue
		}
		query := fmt.Sprintf(`
			INSERT INTO %s (doc_key, value, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (doc_key)
			DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`, table)
		if _, err := tx.ExecContext(ctx, query, key, string(value)); err != nil {
			return fmt.Errorf("failed to write %s: %w", key, err)
		}
	}
	return nil
}

func (p *PostgresGateway) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
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

func (p *PostgresGateway) ensureReady(ctx context.Context) error {
	p.initOnce.Do(func() {
		db, err := p.openDB("postgres", p.dsn)
		if err != nil {
			p.initErr = fmt.Errorf("failed to open database: %w", err)
			return
		}
		query := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				doc_key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`, quoteIdentifier(p.tableName))
		if _, err := db.ExecContext(ctx, query); err != nil {
			_ = db.Close()
			p.initErr = fmt.Errorf("failed to create %s: %w", p.tableName, err)
			return
		}
		p.db = db
	})
	return p.initErr
}

func quoteIdentifier(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "\"\""
	}
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

func lockKey(tableName, key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(tableName))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64())
}
