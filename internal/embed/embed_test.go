// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package embed_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/quarry-kg/quarry/internal/cache"
	"github.com/quarry-kg/quarry/internal/embed"
	"github.com/quarry-kg/quarry/internal/store"
	"github.com/quarry-kg/quarry/internal/store/jsonfile"
	qerr "github.com/quarry-kg/quarry/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, 2},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 1},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 1},
		{"length mismatch", []float64{1}, []float64{1, 1}, 1},
		{"empty", nil, nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, embed.CosineDistance(tt.a, tt.b), 1e-9)
		})
	}
}

// embeddingServer answers the embeddings endpoint with vectors from vec.
func embeddingServer(t *testing.T, calls *atomic.Int32, vec func(string) []float64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"))
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		data := make([]map[string]any, len(req.Input))
		for i, in := range req.Input {
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": vec(in)}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]any{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIEmbed(t *testing.T) {
	var calls atomic.Int32
	srv := embeddingServer(t, &calls, func(s string) []float64 { return []float64{float64(len(s)), 1} })

	e, err := embed.NewOpenAI(embed.Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	vecs, err := e.Embed(context.Background(), []string{"ab", "abcd"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{2, 1}, {4, 1}}, vecs)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIEmbedUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	e, err := embed.NewOpenAI(embed.Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, qerr.IsUpstreamFailure(err))
}

func TestNewRequiresKey(t *testing.T) {
	e, err := embed.New(embed.Config{})
	require.Error(t, err)
	assert.True(t, qerr.IsUnavailable(err))
	assert.Nil(t, e, "no embedder is returned as an untyped nil")

	_, err = embed.New(embed.Config{Provider: "word2vec", APIKey: "k"})
	assert.True(t, qerr.IsUnavailable(err))
}

func newCache(t *testing.T) *cache.Cache {
	t.Helper()
	backend, err := jsonfile.New(t.TempDir())
	require.NoError(t, err)
	c, err := cache.Open(context.Background(), backend)
	require.NoError(t, err)
	return c
}

func TestDistancesBetweenIsCached(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	srv := embeddingServer(t, &calls, func(s string) []float64 {
		if s == "cat" {
			return []float64{1, 0}
		}
		return []float64{0, 1}
	})
	e, err := embed.NewOpenAI(embed.Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	c := newCache(t)
	d := embed.NewDistances(c, e)

	dist, err := d.Between(ctx, "cat", "dog")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, dist, 1e-9)

	_, err = d.Between(ctx, "cat", "dog")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	v, ok := c.Get(store.KindDistance, "cat&dog")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestDistancesWithoutEmbedder(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)
	require.NoError(t, c.Put(ctx, store.KindDistance, "a&b", "0.25"))
	d := embed.NewDistances(c, nil)
	assert.False(t, d.Available())

	dist, err := d.Between(ctx, "a", "b")
	require.NoError(t, err)
	assert.InDelta(t, 0.25, dist, 1e-9)

	_, err = d.Between(ctx, "b", "a")
	require.Error(t, err)
	assert.True(t, qerr.IsUnavailable(err))
}

func TestDistancesBetweenEntities(t *testing.T) {
	ctx := context.Background()
	var seen []string
	var calls atomic.Int32
	srv := embeddingServer(t, &calls, func(s string) []float64 {
		seen = append(seen, s)
		return []float64{1, 1}
	})
	e, err := embed.NewOpenAI(embed.Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	c := newCache(t)
	require.NoError(t, c.Update(ctx, func(tx *cache.Tx) {
		tx.Put(store.KindLabel, "Q90", "Paris")
		tx.Put(store.KindDescription, "Q90", "capital of France")
		tx.Put(store.KindLabel, "Q142", "France")
		tx.Put(store.KindDescription, "Q142", "country")
	}))

	dist, err := embed.NewDistances(c, e).BetweenEntities(ctx, "Q90", "Q142")
	require.NoError(t, err)
	assert.InDelta(t, 0, dist, 1e-9)
	assert.Equal(t, []string{"Paris capital of France", "France country"}, seen)
}
