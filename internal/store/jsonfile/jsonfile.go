// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

// Package jsonfile stores each cache kind as one flat JSON object file. A
// flush rewrites every touched file in full through a temp file and rename.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/quarry-kg/quarry/internal/store"
	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

func init() {
	store.RegisterBackend("json", func(cfg store.Config) (store.Backend, error) {
		return New(cfg.Dir)
	})
}

// FileNames maps each kind to its file under the data directory.
var FileNames = map[store.Kind]string{
	store.KindMention:             "mention_ids.json",
	store.KindLabel:               "labels.json",
	store.KindDescription:         "descriptions.json",
	store.KindRelationLabel:       "relation_labels.json",
	store.KindRelationDescription: "relation_descriptions.json",
	store.KindDistance:            "distances.json",
	store.KindOutgoing:            "outgoing.json",
	store.KindAdjacency:           "adjacency.json",
}

var _ store.Backend = (*Backend)(nil)

// Backend keeps the full persisted state in memory so every flush can write
// complete files.
type Backend struct {
	dir    string
	mu     sync.Mutex
	state  *store.Snapshot
	loaded bool
	closed bool
	logger *slog.Logger
}

// New creates the data directory if needed.
func New(dir string) (*Backend, error) {
	if dir == "" {
		return nil, qerr.New(qerr.CodeStoreInvalidInput, "json backend needs a data directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, qerr.Errorf(qerr.CodeStoreDatabaseFailure, "creating data dir %s: %w", dir, err)
	}
	return &Backend{dir: dir, state: store.NewSnapshot(), logger: slog.Default()}, nil
}

// Load reads every kind file. Missing files are empty mappings.
func (b *Backend) Load(_ context.Context) (*store.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, store.ErrClosed
	}
	if err := b.loadLocked(); err != nil {
		return nil, err
	}
	return clone(b.state), nil
}

// caller must hold b.mu
func (b *Backend) loadLocked() error {
	state := store.NewSnapshot()
	for _, kind := range store.ValueKinds {
		m := make(map[string]string)
		if err := b.read(kind, &m); err != nil {
			return err
		}
		state.Values[kind] = m
	}
	adj := make(map[string][]string)
	if err := b.read(store.KindAdjacency, &adj); err != nil {
		return err
	}
	state.Adjacency = adj
	b.state = state
	b.loaded = true
	return nil
}

func (b *Backend) read(kind store.Kind, into any) error {
	path := filepath.Join(b.dir, FileNames[kind])
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return qerr.Errorf(qerr.CodeStoreLoadFailure, "reading %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, into); err != nil {
		return qerr.Wrap(err, qerr.CodeStoreLoadFailure, "decoding cache file",
			qerr.FieldKind(string(kind)), qerr.Field("path", path))
	}
	return nil
}

// Flush merges delta into the in-memory state and rewrites the files of
// every kind it touches.
func (b *Backend) Flush(_ context.Context, delta *store.Snapshot) error {
	if delta == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return store.ErrClosed
	}
	// Files are rewritten whole, so the on-disk state must be known first.
	if !b.loaded {
		if err := b.loadLocked(); err != nil {
			return err
		}
	}

	for kind, entries := range delta.Values {
		if len(entries) == 0 {
			continue
		}
		if _, ok := FileNames[kind]; !ok || kind == store.KindAdjacency {
			return qerr.Wrap(store.ErrUnknownKind, qerr.CodeStoreInvalidInput, "flushing cache",
				qerr.FieldKind(string(kind)))
		}
		merged := b.state.Values[kind]
		if merged == nil {
			merged = make(map[string]string)
			b.state.Values[kind] = merged
		}
		for k, v := range entries {
			merged[k] = v
		}
		if err := b.write(kind, merged); err != nil {
			return err
		}
	}
	if len(delta.Adjacency) > 0 {
		for k, v := range delta.Adjacency {
			b.state.Adjacency[k] = append([]string{}, v...)
		}
		if err := b.write(store.KindAdjacency, b.state.Adjacency); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) write(kind store.Kind, v any) error {
	path := filepath.Join(b.dir, FileNames[kind])
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return qerr.Errorf(qerr.CodeStoreFlushFailure, "encoding %s: %w", kind, err)
	}

	tmp, err := os.CreateTemp(b.dir, "."+FileNames[kind]+".*")
	if err != nil {
		return qerr.Errorf(qerr.CodeStoreFlushFailure, "creating temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return qerr.Errorf(qerr.CodeStoreFlushFailure, "writing %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return qerr.Errorf(qerr.CodeStoreFlushFailure, "syncing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return qerr.Errorf(qerr.CodeStoreFlushFailure, "closing %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return qerr.Errorf(qerr.CodeStoreFlushFailure, "replacing %s: %w", path, err)
	}
	b.logger.Debug("cache file written", "path", path, "kind", kind)
	return nil
}

// Close marks the backend closed. Files are always consistent on disk.
func (b *Backend) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

func clone(s *store.Snapshot) *store.Snapshot {
	out := store.NewSnapshot()
	for kind, m := range s.Values {
		for k, v := range m {
			out.Set(kind, k, v)
		}
	}
	for k, v := range s.Adjacency {
		out.Adjacency[k] = append([]string{}, v...)
	}
	return out
}
