// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

// Package resolver answers entity lookups from the cache and fills cache
// misses through the rate-limited gateway.
package resolver

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/quarry-kg/quarry/internal/cache"
	"github.com/quarry-kg/quarry/internal/kg"
	"github.com/quarry-kg/quarry/internal/sparql"
	"github.com/quarry-kg/quarry/internal/store"
	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

// DefaultChunkSize bounds the ids per label batch query.
const DefaultChunkSize = 10

// DefaultDepth is the neighborhood depth used by Neighbors.
const DefaultDepth = 2

// Querier is the gateway as seen by the resolver. Errors are reserved for
// cancellation; endpoint failures arrive as empty rows.
type Querier interface {
	Query(ctx context.Context, query string) ([]sparql.Row, error)
}

// Config tunes a Resolver.
type Config struct {
	ChunkSize int
	Depth     int
}

// Resolver ties the cache, the compiler and the gateway together.
type Resolver struct {
	cache     *cache.Cache
	gateway   Querier
	compiler  sparql.Compiler
	chunkSize int
	depth     int
	logger    *slog.Logger
}

// New validates cfg and returns a resolver.
func New(c *cache.Cache, gw Querier, compiler sparql.Compiler, cfg Config) (*Resolver, error) {
	if c == nil || gw == nil {
		return nil, qerr.New(qerr.CodeResolverConfigInvalid, "resolver needs a cache and a gateway")
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Depth == 0 {
		cfg.Depth = DefaultDepth
	}
	if cfg.ChunkSize < 1 || cfg.Depth < 1 {
		return nil, qerr.New(qerr.CodeResolverConfigInvalid, "chunk size and depth must be positive",
			qerr.Field("chunk_size", cfg.ChunkSize), qerr.Field("depth", cfg.Depth))
	}
	if cfg.Depth > compiler.DepthCap() {
		return nil, qerr.New(qerr.CodeResolverConfigInvalid, "depth exceeds the compiler's max depth",
			qerr.Field("depth", cfg.Depth), qerr.Field("max_depth", compiler.DepthCap()))
	}
	return &Resolver{
		cache:     c,
		gateway:   gw,
		compiler:  compiler,
		chunkSize: cfg.ChunkSize,
		depth:     cfg.Depth,
		logger:    slog.Default(),
	}, nil
}

// WithLogger returns r logging to l.
func (r *Resolver) WithLogger(l *slog.Logger) *Resolver {
	cp := *r
	cp.logger = l
	return &cp
}

// Cache returns the underlying cache.
func (r *Resolver) Cache() *cache.Cache { return r.cache }

// BatchStats summarizes one ResolveLabels call.
type BatchStats struct {
	Requested int `json:"requested"`
	Missing   int `json:"missing"`
	Queries   int `json:"queries"`
	Resolved  int `json:"resolved"`
}

// ResolveLabels ensures every id has a cached label and description. Ids
// already holding both are skipped; the rest are de-duplicated and fetched
// chunkSize at a time, one query and one flush per chunk. Ids the endpoint
// returns nothing for stay uncached. Cancellation stops between chunks;
// chunks already flushed stay persisted.
func (r *Resolver) ResolveLabels(ctx context.Context, ids []string) (BatchStats, error) {
	stats := BatchStats{Requested: len(ids)}

	seen := make(map[string]bool, len(ids))
	var missing []string
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if !r.compiler.Entities.ValidID(id) {
			r.logger.Debug("skipping malformed entity id", "entity", id)
			continue
		}
		if r.cache.Has(store.KindLabel, id) && r.cache.Has(store.KindDescription, id) {
			continue
		}
		missing = append(missing, id)
	}
	sort.Strings(missing)
	stats.Missing = len(missing)

	for start := 0; start < len(missing); start += r.chunkSize {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		chunk := missing[start:min(start+r.chunkSize, len(missing))]

		q, err := r.compiler.LabelBatch(chunk)
		if err != nil {
			return stats, err
		}
		rows, err := r.gateway.Query(ctx, q.String())
		stats.Queries++
		if err != nil {
			return stats, err
		}

		resolved := 0
		err = r.cache.Update(ctx, func(tx *cache.Tx) {
			for _, row := range rows {
				uri, ok := row.Get(sparql.EntityIDVar)
				if !ok {
					continue
				}
				id := kg.IDFromURI(uri)
				label, _ := row.Get(sparql.EntityLabelVar)
				desc, _ := row.Get(sparql.EntityDescriptionVar)
				tx.Put(store.KindLabel, id, label)
				tx.Put(store.KindDescription, id, desc)
				resolved++
			}
		})
		if err != nil {
			return stats, err
		}
		stats.Resolved += resolved
		r.logger.Debug("label chunk resolved", "chunk", len(chunk), "rows", len(rows))
	}
	return stats, nil
}

// LabelDescription returns the label and description of id, fetching them
// when either is missing. An unresolvable id yields empty strings.
func (r *Resolver) LabelDescription(ctx context.Context, id string) (kg.Entity, error) {
	if !r.compiler.Entities.ValidID(id) {
		return kg.Entity{}, qerr.New(qerr.CodeQueryCompileInvalidInput, "malformed entity id", qerr.FieldEntity(id))
	}
	if e, ok := r.cache.Entity(id); ok {
		return e, nil
	}
	if _, err := r.ResolveLabels(ctx, []string{id}); err != nil {
		return kg.Entity{ID: id}, err
	}
	e, _ := r.cache.Entity(id)
	return e, nil
}

// ResolveMention maps surface text to an entity id. The text is trimmed and
// NFC-normalized before it is used as the cache key. A miss is cached as the
// empty id and never retried.
func (r *Resolver) ResolveMention(ctx context.Context, mention string) (string, error) {
	mention = norm.NFC.String(strings.TrimSpace(mention))
	q, err := r.compiler.Mention(mention)
	if err != nil {
		return "", err
	}
	if id, ok := r.cache.Get(store.KindMention, mention); ok {
		return id, nil
	}

	rows, err := r.gateway.Query(ctx, q.String())
	if err != nil {
		return "", err
	}
	id := ""
	for _, row := range rows {
		if uri, ok := row.Get(sparql.ItemVar); ok {
			id = kg.IDFromURI(uri)
			break
		}
	}
	if err := r.cache.Put(ctx, store.KindMention, mention, id); err != nil {
		return id, err
	}
	if id == "" {
		r.logger.Debug("mention did not resolve", "mention", mention)
	}
	return id, nil
}

// Expand runs one neighborhood query and merges the result into the cache:
// every label and description, the root's adjacency (an empty set when
// nothing came back) and the adjacency of other subjects not cached yet.
func (r *Resolver) Expand(ctx context.Context, id string, depth int) (sparql.Neighborhood, error) {
	q, err := r.compiler.Neighborhood(id, depth)
	if err != nil {
		return sparql.Neighborhood{}, err
	}
	rows, err := r.gateway.Query(ctx, q.String())
	if err != nil {
		return sparql.Neighborhood{}, err
	}
	n := sparql.Flatten(id, depth, rows)

	err = r.cache.Update(ctx, func(tx *cache.Tx) {
		for k, v := range n.Labels {
			tx.Put(store.KindLabel, k, v)
		}
		for k, v := range n.Descriptions {
			tx.Put(store.KindDescription, k, v)
		}
		for k, v := range n.RelationLabels {
			tx.Put(store.KindRelationLabel, k, v)
		}
		for k, v := range n.RelationDescriptions {
			tx.Put(store.KindRelationDescription, k, v)
		}
		for subject, tokens := range n.Adjacency {
			if subject == id || !tx.HasEdges(subject) {
				tx.PutTokens(subject, tokens)
			}
		}
	})
	return n, err
}

// Neighbors returns the cached adjacency of id, or expands it starting at
// the configured depth and falling back one hop at a time until some depth
// yields edges.
func (r *Resolver) Neighbors(ctx context.Context, id string) ([]kg.Edge, error) {
	if edges, ok := r.cache.Edges(id); ok {
		return edges, nil
	}
	var edges []kg.Edge
	for depth := r.depth; depth >= 1; depth-- {
		n, err := r.Expand(ctx, id, depth)
		if err != nil {
			return nil, err
		}
		edges = n.Edges(id)
		if len(edges) > 0 {
			break
		}
		r.logger.Debug("no neighbors at depth", "entity", id, "depth", depth)
	}
	return edges, nil
}

// Outgoing lists the entity ids reachable from id in one hop, sorted. The
// list is cached under the outgoing kind, an empty list included, so a
// later call needs no query.
func (r *Resolver) Outgoing(ctx context.Context, id string) ([]string, error) {
	q, err := r.compiler.Outgoing(id)
	if err != nil {
		return nil, err
	}
	if cached, ok := r.cache.Get(store.KindOutgoing, id); ok {
		return strings.Fields(cached), nil
	}

	rows, err := r.gateway.Query(ctx, q.String())
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(rows))
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		uri, ok := row.Get(sparql.ObjectVar)
		if !ok {
			continue
		}
		obj := kg.IDFromURI(uri)
		if !seen[obj] {
			seen[obj] = true
			out = append(out, obj)
		}
	}
	sort.Strings(out)
	if err := r.cache.Put(ctx, store.KindOutgoing, id, strings.Join(out, " ")); err != nil {
		return out, err
	}
	return out, nil
}

// Relation returns the cached label and description of a relation id.
func (r *Resolver) Relation(id string) kg.Relation {
	label, _ := r.cache.Get(store.KindRelationLabel, id)
	desc, _ := r.cache.Get(store.KindRelationDescription, id)
	return kg.Relation{ID: id, Label: label, Description: desc}
}

// CachedEntity returns whatever the cache holds for id without any lookup.
func (r *Resolver) CachedEntity(id string) kg.Entity {
	e, _ := r.cache.Entity(id)
	return e
}
