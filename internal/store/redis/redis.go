// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

// Package redis persists the cache as one Redis hash per kind, named
// "<prefix>:<kind>". Adjacency values are JSON arrays.
package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/quarry-kg/quarry/internal/store"
	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

func init() {
	store.RegisterBackend("redis", func(cfg store.Config) (store.Backend, error) {
		return New(context.Background(), cfg.Redis)
	})
}

var _ store.Backend = (*Backend)(nil)

// Backend implements store.Backend on Redis hashes.
type Backend struct {
	rdb    *goredis.Client
	prefix string
	logger *slog.Logger
}

// New connects and pings the server.
func New(ctx context.Context, cfg store.RedisConfig) (*Backend, error) {
	if cfg.Addr == "" {
		return nil, qerr.New(qerr.CodeStoreInvalidInput, "redis backend needs an address")
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "quarry"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, qerr.Errorf(qerr.CodeStoreDatabaseFailure, "redis ping: %w", err)
	}

	return &Backend{rdb: rdb, prefix: prefix, logger: slog.Default()}, nil
}

func (b *Backend) hashKey(kind store.Kind) string {
	return b.prefix + ":" + string(kind)
}

// Load reads every kind hash. Missing hashes are empty.
func (b *Backend) Load(ctx context.Context) (*store.Snapshot, error) {
	snap := store.NewSnapshot()
	for _, kind := range store.ValueKinds {
		m, err := b.rdb.HGetAll(ctx, b.hashKey(kind)).Result()
		if err != nil {
			return nil, qerr.Errorf(qerr.CodeStoreLoadFailure, "reading %s: %w", b.hashKey(kind), err)
		}
		snap.Values[kind] = m
	}

	adj, err := b.rdb.HGetAll(ctx, b.hashKey(store.KindAdjacency)).Result()
	if err != nil {
		return nil, qerr.Errorf(qerr.CodeStoreLoadFailure, "reading adjacency: %w", err)
	}
	for key, raw := range adj {
		var edges []string
		if err := json.Unmarshal([]byte(raw), &edges); err != nil {
			b.logger.Warn("skipping corrupt adjacency entry", "entity", key, "error", err)
			continue
		}
		if edges == nil {
			edges = []string{}
		}
		snap.Adjacency[key] = edges
	}
	return snap, nil
}

// Flush writes delta in a single MULTI/EXEC transaction.
func (b *Backend) Flush(ctx context.Context, delta *store.Snapshot) error {
	if delta.Empty() {
		return nil
	}
	for kind, entries := range delta.Values {
		if len(entries) > 0 && !kind.Valid() {
			return qerr.Wrap(store.ErrUnknownKind, qerr.CodeStoreInvalidInput, "flushing cache",
				qerr.FieldKind(string(kind)))
		}
	}

	adjacency := make(map[string]any, len(delta.Adjacency))
	for key, edges := range delta.Adjacency {
		if edges == nil {
			edges = []string{}
		}
		encoded, err := json.Marshal(edges)
		if err != nil {
			return qerr.Errorf(qerr.CodeStoreFlushFailure, "encoding adjacency of %s: %w", key, err)
		}
		adjacency[key] = string(encoded)
	}

	_, err := b.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for kind, entries := range delta.Values {
			if len(entries) == 0 {
				continue
			}
			fields := make(map[string]any, len(entries))
			for k, v := range entries {
				fields[k] = v
			}
			pipe.HSet(ctx, b.hashKey(kind), fields)
		}
		if len(adjacency) > 0 {
			pipe.HSet(ctx, b.hashKey(store.KindAdjacency), adjacency)
		}
		return nil
	})
	if err != nil {
		return qerr.Errorf(qerr.CodeStoreFlushFailure, "redis flush: %w", err)
	}
	return nil
}

// Close closes the client.
func (b *Backend) Close() error {
	return b.rdb.Close()
}
