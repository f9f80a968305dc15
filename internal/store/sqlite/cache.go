// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

// Package sqlite persists the cache in a single SQLite table keyed by
// (kind, key). Each flush is one transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/quarry-kg/quarry/internal/store"
	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

func init() {
	store.RegisterBackend("sqlite", func(cfg store.Config) (store.Backend, error) {
		if cfg.Dir == "" {
			return nil, qerr.New(qerr.CodeStoreInvalidInput, "sqlite backend needs a data directory")
		}
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, qerr.Errorf(qerr.CodeStoreDatabaseFailure, "creating data dir %s: %w", cfg.Dir, err)
		}
		return New(filepath.Join(cfg.Dir, "cache.db"))
	})
}

// Compile-time interface check.
var _ store.Backend = (*Backend)(nil)

// Backend implements store.Backend on SQLite.
type Backend struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens (or creates) the database at dbPath and migrates the schema.
func New(dbPath string) (*Backend, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, qerr.Errorf(qerr.CodeStoreDatabaseFailure, "opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, qerr.Errorf(qerr.CodeStoreDatabaseFailure, "pinging sqlite db: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, qerr.Errorf(qerr.CodeStoreDatabaseFailure, "migrating cache table: %w", err)
	}

	return &Backend{db: db, logger: slog.Default()}, nil
}

func migrate(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS cache_entries (
	kind  TEXT NOT NULL,
	key   TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (kind, key)
);
`
	_, err := db.Exec(ddl)
	return err
}

// Load reads every row.
func (b *Backend) Load(ctx context.Context) (*store.Snapshot, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT kind, key, value FROM cache_entries`)
	if err != nil {
		return nil, qerr.Errorf(qerr.CodeStoreLoadFailure, "querying cache entries: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	snap := store.NewSnapshot()
	for rows.Next() {
		var kind, key, value string
		if err := rows.Scan(&kind, &key, &value); err != nil {
			return nil, qerr.Errorf(qerr.CodeStoreLoadFailure, "scanning cache entry: %w", err)
		}
		if store.Kind(kind) == store.KindAdjacency {
			var edges []string
			if err := json.Unmarshal([]byte(value), &edges); err != nil {
				b.logger.Warn("skipping corrupt adjacency entry", "entity", key, "error", err)
				continue
			}
			if edges == nil {
				edges = []string{}
			}
			snap.Adjacency[key] = edges
			continue
		}
		if !store.Kind(kind).Valid() {
			b.logger.Warn("skipping cache entry of unknown kind", "kind", kind, "key", key)
			continue
		}
		snap.Set(store.Kind(kind), key, value)
	}
	if err := rows.Err(); err != nil {
		return nil, qerr.Errorf(qerr.CodeStoreLoadFailure, "iterating cache entries: %w", err)
	}
	return snap, nil
}

// Flush upserts every entry of delta inside one transaction.
func (b *Backend) Flush(ctx context.Context, delta *store.Snapshot) error {
	if delta.Empty() {
		return nil
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return qerr.Errorf(qerr.CodeStoreFlushFailure, "beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO cache_entries (kind, key, value) VALUES (?, ?, ?)
ON CONFLICT(kind, key) DO UPDATE SET value = excluded.value`)
	if err != nil {
		return qerr.Errorf(qerr.CodeStoreFlushFailure, "preparing upsert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck

	for kind, entries := range delta.Values {
		if len(entries) > 0 && !kind.Valid() {
			return qerr.Wrap(store.ErrUnknownKind, qerr.CodeStoreInvalidInput, "flushing cache",
				qerr.FieldKind(string(kind)))
		}
		for key, value := range entries {
			if _, err := stmt.ExecContext(ctx, string(kind), key, value); err != nil {
				return qerr.Errorf(qerr.CodeStoreFlushFailure, "upserting %s %q: %w", kind, key, err)
			}
		}
	}
	for key, edges := range delta.Adjacency {
		if edges == nil {
			edges = []string{}
		}
		encoded, err := json.Marshal(edges)
		if err != nil {
			return qerr.Errorf(qerr.CodeStoreFlushFailure, "encoding adjacency of %s: %w", key, err)
		}
		if _, err := stmt.ExecContext(ctx, string(store.KindAdjacency), key, string(encoded)); err != nil {
			return qerr.Errorf(qerr.CodeStoreFlushFailure, "upserting adjacency %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return qerr.Errorf(qerr.CodeStoreFlushFailure, "committing flush: %w", err)
	}
	return nil
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}
