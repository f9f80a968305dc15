// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package embed

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/quarry-kg/quarry/internal/cache"
	"github.com/quarry-kg/quarry/internal/store"
	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

// Distances computes text distances through an embedder and caches them
// under the distance kind, keyed "a&b".
type Distances struct {
	cache    *cache.Cache
	embedder Embedder
	logger   *slog.Logger
}

// NewDistances returns a Distances. A nil embedder serves cached values only.
func NewDistances(c *cache.Cache, e Embedder) *Distances {
	return &Distances{cache: c, embedder: e, logger: slog.Default()}
}

// Available reports whether uncached distances can be computed.
func (d *Distances) Available() bool { return d.embedder != nil }

func distanceKey(a, b string) string { return a + "&" + b }

// Between returns the cosine distance between the embeddings of a and b.
func (d *Distances) Between(ctx context.Context, a, b string) (float64, error) {
	key := distanceKey(a, b)
	if v, ok := d.cache.Get(store.KindDistance, key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, nil
		}
		d.logger.Warn("discarding unparsable cached distance", "key", key, "value", v)
	}
	if d.embedder == nil {
		return 0, qerr.New(qerr.CodeEmbedUnavailable, "no embedder configured")
	}

	vecs, err := d.embedder.Embed(ctx, []string{a, b})
	if err != nil {
		return 0, err
	}
	dist := CosineDistance(vecs[0], vecs[1])
	if err := d.cache.Put(ctx, store.KindDistance, key, strconv.FormatFloat(dist, 'g', -1, 64)); err != nil {
		return dist, err
	}
	return dist, nil
}

// BetweenEntities compares two cached entities by their "label description"
// text.
func (d *Distances) BetweenEntities(ctx context.Context, idA, idB string) (float64, error) {
	return d.Between(ctx, d.entityText(idA), d.entityText(idB))
}

func (d *Distances) entityText(id string) string {
	e, _ := d.cache.Entity(id)
	return strings.TrimSpace(e.Label + " " + e.Description)
}
