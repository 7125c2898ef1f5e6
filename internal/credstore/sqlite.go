// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credstore

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS entries (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// sqliteBackend keeps the store in a SQLite database.
type sqliteBackend struct {
	db   *sql.DB
	file string
}

func openSQLite(ctx context.Context, path string) (*sqliteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteBackend{db: db, file: path}, nil
}

func (b *sqliteBackend) path() string { return b.file }

func (b *sqliteBackend) load(ctx context.Context) (document, bool, error) {
	var saltText string
	err := b.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = 'salt'").Scan(&saltText)
	if errors.Is(err, sql.ErrNoRows) {
		return document{}, false, nil
	}
	if err != nil {
		return document{}, false, err
	}

	doc := document{Entries: make(map[string]string)}
	if doc.Salt, err = base64.StdEncoding.DecodeString(saltText); err != nil {
		return document{}, false, fmt.Errorf("corrupt salt: %w", err)
	}

	err = b.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = 'verifier'").Scan(&doc.Verifier)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return document{}, false, err
	}

	rows, err := b.db.QueryContext(ctx, "SELECT key, value FROM entries")
	if err != nil {
		return document{}, false, err
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return document{}, false, err
		}
		doc.Entries[k] = v
	}
	return doc, true, rows.Err()
}

func (b *sqliteBackend) save(ctx context.Context, doc document) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	upsert := "INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value"
	if _, err := tx.ExecContext(ctx, upsert, "salt", base64.StdEncoding.EncodeToString(doc.Salt)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, upsert, "verifier", doc.Verifier); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM entries"); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO entries (key, value) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for k, v := range doc.Entries {
		if _, err := stmt.ExecContext(ctx, k, v); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (b *sqliteBackend) close() error {
	return b.db.Close()
}
