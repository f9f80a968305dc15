// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package gateway_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quarry-kg/quarry/internal/gateway"
	"github.com/quarry-kg/quarry/internal/sparql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEndpoint records concurrency and returns canned rows or an error.
type fakeEndpoint struct {
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	calls       atomic.Int32
	hold        time.Duration
	err         error
	rows        []sparql.Row
}

func (f *fakeEndpoint) Query(ctx context.Context, _ string) ([]sparql.Row, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxInFlight.Load()
		if n <= cur || f.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	f.calls.Add(1)
	if f.hold > 0 {
		select {
		case <-time.After(f.hold):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.rows, f.err
}

func oneRow() []sparql.Row {
	return []sparql.Row{{"item": {Type: "uri", Value: "http://www.wikidata.org/entity/Q1"}}}
}

func TestGatewayReturnsRowsOnSuccess(t *testing.T) {
	ep := &fakeEndpoint{rows: oneRow()}
	g := gateway.New(ep, 0)

	rows, err := g.Query(context.Background(), "SELECT ?item WHERE {}")
	require.NoError(t, err)
	assert.Equal(t, oneRow(), rows)

	m := g.Metrics()
	assert.Equal(t, int64(1), m.Calls)
	assert.Equal(t, int64(0), m.FailureCount)
	assert.True(t, m.Available)
}

func TestGatewayDegradesFailureToEmpty(t *testing.T) {
	ep := &fakeEndpoint{err: errors.New("503 service unavailable")}
	g := gateway.New(ep, 0)

	rows, err := g.Query(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, rows)

	m := g.Metrics()
	assert.Equal(t, int64(1), m.FailureCount)
	assert.False(t, m.Available)
	assert.NotNil(t, m.LastFailureAt)
}

func TestGatewayDelaysAfterEveryCall(t *testing.T) {
	const delay = 40 * time.Millisecond

	tests := []struct {
		name string
		ep   *fakeEndpoint
	}{
		{"success", &fakeEndpoint{rows: oneRow()}},
		{"failure", &fakeEndpoint{err: errors.New("boom")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := gateway.New(tt.ep, delay)
			start := time.Now()
			_, err := g.Query(context.Background(), "q")
			require.NoError(t, err)
			_, err = g.Query(context.Background(), "q")
			require.NoError(t, err)
			assert.GreaterOrEqual(t, time.Since(start), 2*delay)
		})
	}
}

func TestGatewaySerializesConcurrentCallers(t *testing.T) {
	ep := &fakeEndpoint{rows: oneRow(), hold: 5 * time.Millisecond}
	g := gateway.New(ep, time.Millisecond)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.Query(context.Background(), "q")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(8), ep.calls.Load())
	assert.Equal(t, int32(1), ep.maxInFlight.Load())
}

func TestGatewayHonorsCancellation(t *testing.T) {
	t.Run("before call", func(t *testing.T) {
		ep := &fakeEndpoint{rows: oneRow()}
		g := gateway.New(ep, 0)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := g.Query(ctx, "q")
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, int32(0), ep.calls.Load())
	})

	t.Run("during delay", func(t *testing.T) {
		ep := &fakeEndpoint{rows: oneRow()}
		g := gateway.New(ep, time.Hour)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		rows, err := g.Query(ctx, "q")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Nil(t, rows)
	})

	t.Run("during call is not a failure", func(t *testing.T) {
		ep := &fakeEndpoint{rows: oneRow(), hold: time.Hour}
		g := gateway.New(ep, 0)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := g.Query(ctx, "q")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, int64(0), g.Metrics().FailureCount)
	})
}
