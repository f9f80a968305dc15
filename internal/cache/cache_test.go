// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package cache_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/quarry-kg/quarry/internal/cache"
	"github.com/quarry-kg/quarry/internal/kg"
	"github.com/quarry-kg/quarry/internal/store"
	"github.com/quarry-kg/quarry/internal/store/jsonfile"
	qerr "github.com/quarry-kg/quarry/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingBackend wraps a backend and counts flushes.
type countingBackend struct {
	store.Backend
	mu      sync.Mutex
	flushes int
	fail    error
}

func (b *countingBackend) Flush(ctx context.Context, delta *store.Snapshot) error {
	b.mu.Lock()
	b.flushes++
	fail := b.fail
	b.mu.Unlock()
	if fail != nil {
		return fail
	}
	return b.Backend.Flush(ctx, delta)
}

func (b *countingBackend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushes
}

func newBackend(t *testing.T, dir string) *countingBackend {
	t.Helper()
	inner, err := jsonfile.New(dir)
	require.NoError(t, err)
	return &countingBackend{Backend: inner}
}

func TestOpenOnEmptyDirectory(t *testing.T) {
	c, err := cache.Open(context.Background(), newBackend(t, t.TempDir()))
	require.NoError(t, err)

	_, ok := c.Get(store.KindLabel, "Q42")
	assert.False(t, ok)
	assert.False(t, c.HasEdges("Q42"))
	for _, n := range c.Counts() {
		assert.Zero(t, n)
	}
}

func TestPutFlushesImmediatelyAndPersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := newBackend(t, dir)
	c, err := cache.Open(ctx, b)
	require.NoError(t, err)

	require.NoError(t, c.Put(ctx, store.KindLabel, "Q42", "Douglas Adams"))
	assert.Equal(t, 1, b.count())

	// No-op write still flushes.
	require.NoError(t, c.Put(ctx, store.KindLabel, "Q42", "Douglas Adams"))
	assert.Equal(t, 2, b.count())

	require.NoError(t, c.PutEdges(ctx, "Q42", []kg.Edge{{Relation: "P31", Neighbor: "Q5"}}))
	require.NoError(t, c.Close())

	reopened, err := cache.Open(ctx, newBackend(t, dir))
	require.NoError(t, err)
	label, ok := reopened.Get(store.KindLabel, "Q42")
	assert.True(t, ok)
	assert.Equal(t, "Douglas Adams", label)
	edges, ok := reopened.Edges("Q42")
	assert.True(t, ok)
	assert.Equal(t, []kg.Edge{{Relation: "P31", Neighbor: "Q5"}}, edges)
}

func TestEmptyValueIsDistinctFromAbsence(t *testing.T) {
	ctx := context.Background()
	c, err := cache.Open(ctx, newBackend(t, t.TempDir()))
	require.NoError(t, err)

	require.NoError(t, c.Put(ctx, store.KindMention, "asdfghjkl", ""))
	v, ok := c.Get(store.KindMention, "asdfghjkl")
	assert.True(t, ok)
	assert.Empty(t, v)
	assert.False(t, c.Has(store.KindMention, "other"))

	require.NoError(t, c.PutEdges(ctx, "Q0", nil))
	edges, ok := c.Edges("Q0")
	assert.True(t, ok)
	assert.Empty(t, edges)
}

func TestUpdateFlushesOnce(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, t.TempDir())
	c, err := cache.Open(ctx, b)
	require.NoError(t, err)

	err = c.Update(ctx, func(tx *cache.Tx) {
		for _, id := range []string{"Q1", "Q2", "Q3"} {
			tx.Put(store.KindLabel, id, "label "+id)
			tx.Put(store.KindDescription, id, "description "+id)
		}
		tx.PutTokens("Q1", []string{"P31-Q2"})
		assert.True(t, tx.HasEdges("Q1"))
		assert.False(t, tx.HasEdges("Q2"))
	})
	require.NoError(t, err)
	assert.Equal(t, 1, b.count())

	e, ok := c.Entity("Q2")
	assert.True(t, ok)
	assert.Equal(t, kg.Entity{ID: "Q2", Label: "label Q2", Description: "description Q2"}, e)
	assert.Equal(t, 3, c.Counts()[store.KindLabel])
	assert.Equal(t, 1, c.Counts()[store.KindAdjacency])
}

func TestUpdateReportsFlushFailure(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, t.TempDir())
	c, err := cache.Open(ctx, b)
	require.NoError(t, err)

	b.fail = errors.New("disk full")
	err = c.Put(ctx, store.KindLabel, "Q1", "universe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	// Memory keeps the write so the process can carry on.
	v, ok := c.Get(store.KindLabel, "Q1")
	assert.True(t, ok)
	assert.Equal(t, "universe", v)
}

func TestUpdateRejectsUnknownKind(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t, t.TempDir())
	c, err := cache.Open(ctx, b)
	require.NoError(t, err)

	err = c.Update(ctx, func(tx *cache.Tx) {
		tx.Put(store.KindLabel, "Q1", "universe")
		tx.Put(store.Kind("bogus"), "k", "v")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrUnknownKind)
	assert.False(t, c.Has(store.KindLabel, "Q1"))
	assert.Zero(t, b.count())
}

func TestUpdateAfterClose(t *testing.T) {
	ctx := context.Background()
	c, err := cache.Open(ctx, newBackend(t, t.TempDir()))
	require.NoError(t, err)
	require.NoError(t, c.Close())

	err = c.Put(ctx, store.KindLabel, "Q1", "universe")
	require.Error(t, err)
	assert.True(t, qerr.HasCode(err, qerr.CodeCacheClosed))
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := newBackend(t, dir)
	c, err := cache.Open(ctx, b)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := "Q" + string(rune('A'+i))
			assert.NoError(t, c.Put(ctx, store.KindLabel, id, id))
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, b.count())

	reopened, err := cache.Open(ctx, newBackend(t, dir))
	require.NoError(t, err)
	assert.Equal(t, 20, reopened.Counts()[store.KindLabel])
}
