// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

// Package cache is the in-memory entity cache with write-through
// persistence. Every mutation batch ends in exactly one backend flush, so
// each completed batch is a recovery point.
package cache

import (
	"context"
	"log/slog"
	"sync"

	"github.com/quarry-kg/quarry/internal/kg"
	"github.com/quarry-kg/quarry/internal/store"
	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

// Cache holds every persisted mapping in memory. An empty string or empty
// adjacency is a stored value distinct from absence.
type Cache struct {
	// mu guards the maps; flushMu serializes mutation batches so the
	// read-modify-write of a flush is atomic.
	mu      sync.RWMutex
	flushMu sync.Mutex

	values    map[store.Kind]map[string]string
	adjacency map[string][]string

	backend store.Backend
	logger  *slog.Logger
	closed  bool
}

// Open loads backend contents into a new cache. Missing storage yields an
// empty cache.
func Open(ctx context.Context, backend store.Backend) (*Cache, error) {
	snap, err := backend.Load(ctx)
	if err != nil {
		return nil, err
	}
	c := &Cache{
		values:    make(map[store.Kind]map[string]string, len(store.ValueKinds)),
		adjacency: snap.Adjacency,
		backend:   backend,
		logger:    slog.Default(),
	}
	if c.adjacency == nil {
		c.adjacency = make(map[string][]string)
	}
	for _, k := range store.ValueKinds {
		m := snap.Values[k]
		if m == nil {
			m = make(map[string]string)
		}
		c.values[k] = m
	}
	c.logger.Debug("entity cache loaded", "entries", c.total())
	return c, nil
}

// Get returns the value stored under (kind, key).
func (c *Cache) Get(kind store.Kind, key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[kind][key]
	return v, ok
}

// Has reports whether (kind, key) holds a value, including the empty value.
func (c *Cache) Has(kind store.Kind, key string) bool {
	_, ok := c.Get(kind, key)
	return ok
}

// Edges returns the cached adjacency of id.
func (c *Cache) Edges(id string) ([]kg.Edge, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tokens, ok := c.adjacency[id]
	if !ok {
		return nil, false
	}
	return kg.ParseEdges(tokens), true
}

// HasEdges reports whether an adjacency set, possibly empty, is cached for id.
func (c *Cache) HasEdges(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.adjacency[id]
	return ok
}

// Entity assembles the cached label and description of id.
func (c *Cache) Entity(id string) (kg.Entity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	label, okL := c.values[store.KindLabel][id]
	desc, okD := c.values[store.KindDescription][id]
	return kg.Entity{ID: id, Label: label, Description: desc}, okL && okD
}

// Put stores one value and flushes. A write that leaves the value unchanged
// still flushes.
func (c *Cache) Put(ctx context.Context, kind store.Kind, key, value string) error {
	return c.Update(ctx, func(tx *Tx) {
		tx.Put(kind, key, value)
	})
}

// PutEdges replaces the adjacency of id and flushes.
func (c *Cache) PutEdges(ctx context.Context, id string, edges []kg.Edge) error {
	return c.Update(ctx, func(tx *Tx) {
		tx.PutEdges(id, edges)
	})
}

// Tx collects the writes of one mutation batch. Reads through a Tx see the
// batch's own writes.
type Tx struct {
	c     *Cache
	delta *store.Snapshot
}

// Put records a value.
func (tx *Tx) Put(kind store.Kind, key, value string) {
	tx.delta.Set(kind, key, value)
}

// PutEdges records the full adjacency of id.
func (tx *Tx) PutEdges(id string, edges []kg.Edge) {
	tx.delta.Adjacency[id] = kg.EdgeTokens(edges)
}

// PutTokens records the adjacency of id from edge tokens.
func (tx *Tx) PutTokens(id string, tokens []string) {
	out := make([]string, len(tokens))
	copy(out, tokens)
	tx.delta.Adjacency[id] = out
}

// HasEdges reports whether id has adjacency cached or written in this batch.
func (tx *Tx) HasEdges(id string) bool {
	if _, ok := tx.delta.Adjacency[id]; ok {
		return true
	}
	return tx.c.HasEdges(id)
}

// Update runs fn to collect writes, applies them in memory and flushes them
// to the backend once. When the flush fails the in-memory state keeps the
// writes and the error is returned; a later successful flush of the same
// keys persists them.
func (c *Cache) Update(ctx context.Context, fn func(tx *Tx)) error {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return qerr.New(qerr.CodeCacheClosed, "cache is closed")
	}

	tx := &Tx{c: c, delta: store.NewSnapshot()}
	fn(tx)

	for kind, entries := range tx.delta.Values {
		if len(entries) > 0 && !kind.Valid() {
			return qerr.Wrap(store.ErrUnknownKind, qerr.CodeStoreInvalidInput, "updating cache",
				qerr.FieldKind(string(kind)))
		}
	}

	c.mu.Lock()
	for kind, entries := range tx.delta.Values {
		m := c.values[kind]
		for k, v := range entries {
			m[k] = v
		}
	}
	for id, tokens := range tx.delta.Adjacency {
		c.adjacency[id] = tokens
	}
	c.mu.Unlock()

	if err := c.backend.Flush(ctx, tx.delta); err != nil {
		c.logger.Error("cache flush failed", "error", err)
		return err
	}
	return nil
}

// Counts returns the number of cached entries per kind.
func (c *Cache) Counts() map[store.Kind]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[store.Kind]int, len(c.values)+1)
	for k, m := range c.values {
		out[k] = len(m)
	}
	out[store.KindAdjacency] = len(c.adjacency)
	return out
}

func (c *Cache) total() int {
	n := len(c.adjacency)
	for _, m := range c.values {
		n += len(m)
	}
	return n
}

// Close closes the backend. Later updates fail.
func (c *Cache) Close() error {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.backend.Close()
}
