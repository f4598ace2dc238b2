package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/kefi/internal/client/migrations"
	"github.com/dmitrijs2005/kefi/internal/dbx"
	"github.com/dmitrijs2005/kefi/internal/filex"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// SQLiteArea is the durable area. All rows live in the storage_items
// table created by the embedded migrations.
type SQLiteArea struct {
	db *sql.DB
}

// RunMigrations applies the embedded goose migrations to db. It is safe
// to call on an already migrated database.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// OpenDurable opens (creating if needed) the SQLite database at dsn and
// migrates it. Use ":memory:" for a throwaway area.
func OpenDurable(ctx context.Context, dsn string) (*SQLiteArea, error) {
	if isFilePath(dsn) {
		if err := filex.EnsureParentDir(dsn); err != nil {
			return nil, fmt.Errorf("open durable storage: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open durable storage: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and avoids
	// SQLITE_BUSY between our own writers.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteArea{db: db}, nil
}

// isFilePath reports whether dsn names a plain file rather than an
// in-memory database or a "file:" URI.
func isFilePath(dsn string) bool {
	return dsn != "" && !strings.HasPrefix(dsn, ":memory:") && !strings.HasPrefix(dsn, "file:")
}

// NewSQLiteArea wraps an already migrated database.
func NewSQLiteArea(db *sql.DB) *SQLiteArea {
	return &SQLiteArea{db: db}
}

func (a *SQLiteArea) Close() error {
	return a.db.Close()
}

func (a *SQLiteArea) Get(ctx context.Context, key string) ([]byte, error) {
	return get(ctx, a.db, key)
}

func (a *SQLiteArea) Set(ctx context.Context, key string, value []byte) error {
	return set(ctx, a.db, key, value)
}

func (a *SQLiteArea) Delete(ctx context.Context, key string) error {
	_, err := a.db.ExecContext(ctx, `DELETE FROM storage_items WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete storage item[%s]: %w", key, err)
	}
	return nil
}

func (a *SQLiteArea) Clear(ctx context.Context) error {
	return clearAll(ctx, a.db)
}

func (a *SQLiteArea) Replace(ctx context.Context, items map[string][]byte) error {
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := clearAll(ctx, tx); err != nil {
			return err
		}
		for k, v := range items {
			if err := set(ctx, tx, k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Keys lists the stored keys.
func (a *SQLiteArea) Keys(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT key FROM storage_items ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list storage items: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan storage item: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate storage items: %w", err)
	}
	return keys, nil
}

func get(ctx context.Context, db dbx.DBTX, key string) ([]byte, error) {
	var value []byte
	err := db.QueryRowContext(ctx, `SELECT value FROM storage_items WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get storage item[%s]: %w", key, err)
	}
	return value, nil
}

func set(ctx context.Context, db dbx.DBTX, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO storage_items (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set storage item[%s]: %w", key, err)
	}
	return nil
}

func clearAll(ctx context.Context, db dbx.DBTX) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM storage_items`); err != nil {
		return fmt.Errorf("failed to clear storage items: %w", err)
	}
	return nil
}
