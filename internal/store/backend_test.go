// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/quarry-kg/quarry/internal/store"
	_ "github.com/quarry-kg/quarry/internal/store/jsonfile" // register json backend
	_ "github.com/quarry-kg/quarry/internal/store/redis"    // register redis backend
	_ "github.com/quarry-kg/quarry/internal/store/sqlite"   // register sqlite backend
	qerr "github.com/quarry-kg/quarry/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backendCase struct {
	name string
	cfg  func(t *testing.T) store.Config
}

// backendCases returns one config per backend; reopening with the same
// config must see the same data.
func backendCases(t *testing.T) []backendCase {
	t.Helper()
	cases := []backendCase{
		{"json", func(t *testing.T) store.Config {
			return store.Config{Backend: "json", Dir: t.TempDir()}
		}},
		{"sqlite", func(t *testing.T) store.Config {
			return store.Config{Backend: "sqlite", Dir: t.TempDir()}
		}},
	}
	if addr := os.Getenv("QUARRY_TEST_REDIS_ADDR"); addr != "" {
		cases = append(cases, backendCase{"redis", func(t *testing.T) store.Config {
			return store.Config{Backend: "redis", Redis: store.RedisConfig{
				Addr:   addr,
				Prefix: "quarry-test-" + filepath.Base(t.TempDir()),
			}}
		}})
	}
	return cases
}

func TestBackendLoadEmpty(t *testing.T) {
	for _, bc := range backendCases(t) {
		t.Run(bc.name, func(t *testing.T) {
			b, err := store.Open(bc.cfg(t))
			require.NoError(t, err)
			defer b.Close() //nolint:errcheck

			snap, err := b.Load(context.Background())
			require.NoError(t, err)
			assert.True(t, snap.Empty())
		})
	}
}

func TestBackendFlushRoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, bc := range backendCases(t) {
		t.Run(bc.name, func(t *testing.T) {
			cfg := bc.cfg(t)
			b, err := store.Open(cfg)
			require.NoError(t, err)

			first := store.NewSnapshot()
			first.Set(store.KindLabel, "Q42", "Douglas Adams")
			first.Set(store.KindDescription, "Q42", "English writer and humorist")
			first.Set(store.KindMention, "nonexistent thing", "")
			first.Adjacency["Q42"] = []string{"P106-Q36180", "P31-Q5"}
			first.Adjacency["Q0"] = []string{}
			require.NoError(t, b.Flush(ctx, first))

			second := store.NewSnapshot()
			second.Set(store.KindLabel, "Q5", "human")
			second.Set(store.KindLabel, "Q42", "Douglas Noel Adams")
			second.Set(store.KindRelationLabel, "P31", "instance of")
			require.NoError(t, b.Flush(ctx, second))
			require.NoError(t, b.Close())

			reopened, err := store.Open(cfg)
			require.NoError(t, err)
			defer reopened.Close() //nolint:errcheck

			snap, err := reopened.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"Q42": "Douglas Noel Adams", "Q5": "human"}, snap.Values[store.KindLabel])
			assert.Equal(t, "English writer and humorist", snap.Values[store.KindDescription]["Q42"])
			assert.Equal(t, "instance of", snap.Values[store.KindRelationLabel]["P31"])

			negative, ok := snap.Values[store.KindMention]["nonexistent thing"]
			assert.True(t, ok, "empty string is a stored value")
			assert.Empty(t, negative)

			assert.Equal(t, []string{"P106-Q36180", "P31-Q5"}, snap.Adjacency["Q42"])
			emptySet, ok := snap.Adjacency["Q0"]
			assert.True(t, ok, "empty adjacency is a stored value")
			assert.Empty(t, emptySet)
		})
	}
}

func TestBackendFlushEmptyDelta(t *testing.T) {
	for _, bc := range backendCases(t) {
		t.Run(bc.name, func(t *testing.T) {
			b, err := store.Open(bc.cfg(t))
			require.NoError(t, err)
			defer b.Close() //nolint:errcheck
			assert.NoError(t, b.Flush(context.Background(), store.NewSnapshot()))
		})
	}
}

func TestBackendRejectsUnknownKind(t *testing.T) {
	for _, bc := range backendCases(t) {
		t.Run(bc.name, func(t *testing.T) {
			b, err := store.Open(bc.cfg(t))
			require.NoError(t, err)
			defer b.Close() //nolint:errcheck

			delta := store.NewSnapshot()
			delta.Set(store.Kind("bogus"), "k", "v")
			err = b.Flush(context.Background(), delta)
			require.Error(t, err)
			assert.ErrorIs(t, err, store.ErrUnknownKind)
		})
	}
}

func TestJSONBackendFlushDoesNotDropUnloadedData(t *testing.T) {
	ctx := context.Background()
	cfg := store.Config{Backend: "json", Dir: t.TempDir()}

	b, err := store.Open(cfg)
	require.NoError(t, err)
	delta := store.NewSnapshot()
	delta.Set(store.KindLabel, "Q1", "universe")
	require.NoError(t, b.Flush(ctx, delta))

	// A fresh backend that never called Load must merge, not overwrite.
	b2, err := store.Open(cfg)
	require.NoError(t, err)
	delta = store.NewSnapshot()
	delta.Set(store.KindLabel, "Q2", "Earth")
	require.NoError(t, b2.Flush(ctx, delta))

	snap, err := b2.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Values[store.KindLabel], 2)
	assert.FileExists(t, filepath.Join(cfg.Dir, "labels.json"))
}

func TestJSONBackendCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "labels.json"), []byte("{not json"), 0o644))

	b, err := store.Open(store.Config{Backend: "json", Dir: dir})
	require.NoError(t, err)
	_, err = b.Load(context.Background())
	require.Error(t, err)
	assert.True(t, qerr.HasCode(err, qerr.CodeStoreLoadFailure))
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := store.Open(store.Config{Backend: "cassandra"})
	require.Error(t, err)
	assert.True(t, qerr.HasCode(err, qerr.CodeStoreBackendUnsupported))
	assert.Equal(t, "cassandra", qerr.FieldsOf(err)["backend"])
}

func TestOpenDefaultsToJSON(t *testing.T) {
	b, err := store.Open(store.Config{Dir: t.TempDir()})
	require.NoError(t, err)
	defer b.Close() //nolint:errcheck
	assert.Contains(t, store.Backends(), store.DefaultBackend)
}

func TestKindValid(t *testing.T) {
	for _, k := range store.ValueKinds {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, store.KindAdjacency.Valid())
	assert.False(t, store.Kind("nope").Valid())
}
