// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

// Package pathfinder searches the knowledge graph for a chain of relations
// connecting two entities. The search grows a best-first frontier from each
// end, always expanding the cheaper of the two, and stops when one frontier
// reaches the other end, when both share an entity, or when the entity
// limit is spent.
//
// A candidate path is scored as
//
//	alpha * mean(distance(e, goal) for every entity e but the last)
//	  + beta * hops
//	  + gamma * distance(last, goal)
//
// where goal is the opposite end and distance is the embedding distance of
// the two entities' "label description" text.
package pathfinder

import (
	"context"
	"log/slog"
	"math"
	"slices"

	"github.com/quarry-kg/quarry/internal/kg"
	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

// DefaultEntityLimit bounds how many entities one search visits.
const DefaultEntityLimit = 1000

// Weights are the cost coefficients.
type Weights struct {
	Alpha float64 // mean distance of the path so far to the goal
	Beta  float64 // path length
	Gamma float64 // distance of the path head to the goal
}

// DefaultWeights came out of tuning against benchmark entity pairs.
var DefaultWeights = Weights{Alpha: 0.6991370827362581, Beta: 0.10886217551256613, Gamma: 0.822998046875}

// Semantic reports whether scoring needs entity distances.
func (w Weights) Semantic() bool { return w.Alpha != 0 || w.Gamma != 0 }

// Config tunes a Finder.
type Config struct {
	Weights     Weights
	EntityLimit int
}

// Validate rejects negative or non-finite weights and a limit below one.
func (c Config) Validate() error {
	weights := []struct {
		name  string
		value float64
	}{{"alpha", c.Weights.Alpha}, {"beta", c.Weights.Beta}, {"gamma", c.Weights.Gamma}}
	for _, w := range weights {
		if w.value < 0 || math.IsNaN(w.value) || math.IsInf(w.value, 0) {
			return qerr.New(qerr.CodePathConfigInvalid, "weight must be a finite non-negative number",
				qerr.Field("weight", w.name), qerr.Field("value", w.value))
		}
	}
	if c.EntityLimit < 1 {
		return qerr.New(qerr.CodePathConfigInvalid, "entity limit must be greater than 0",
			qerr.Field("entity_limit", c.EntityLimit))
	}
	return nil
}

// Graph yields the outgoing edges of an entity.
type Graph interface {
	Neighbors(ctx context.Context, id string) ([]kg.Edge, error)
}

// Distance compares two entities.
type Distance interface {
	BetweenEntities(ctx context.Context, idA, idB string) (float64, error)
}

// Step is one hop of a found path. Inverse means the graph edge points from
// Entity back to the previous entity.
type Step struct {
	Relation string `json:"relation"`
	Entity   string `json:"entity"`
	Inverse  bool   `json:"inverse,omitempty"`
}

// Result is the outcome of one search. Steps lead from Source to Target.
type Result struct {
	Source  string `json:"source"`
	Target  string `json:"target"`
	Found   bool   `json:"found"`
	Steps   []Step `json:"steps,omitempty"`
	Visited int    `json:"visited"`
}

// Entities lists the entities of a found path from Source to Target.
func (r Result) Entities() []string {
	if !r.Found {
		return nil
	}
	out := make([]string, 0, len(r.Steps)+1)
	out = append(out, r.Source)
	for _, s := range r.Steps {
		out = append(out, s.Entity)
	}
	return out
}

// Finder runs path searches.
type Finder struct {
	graph    Graph
	distance Distance
	cfg      Config
	logger   *slog.Logger
}

// New returns a Finder. distance may be nil when the weights ignore
// distances.
func New(g Graph, d Distance, cfg Config) (*Finder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if g == nil {
		return nil, qerr.New(qerr.CodePathConfigInvalid, "graph is required")
	}
	if d == nil && cfg.Weights.Semantic() {
		return nil, qerr.New(qerr.CodeEmbedUnavailable, "alpha or gamma is set but no distance source is configured",
			qerr.Field("alpha", cfg.Weights.Alpha), qerr.Field("gamma", cfg.Weights.Gamma))
	}
	return &Finder{graph: g, distance: d, cfg: cfg, logger: slog.Default()}, nil
}

// WithLogger sets the logger and returns f.
func (f *Finder) WithLogger(l *slog.Logger) *Finder {
	if l != nil {
		f.logger = l
	}
	return f
}

// Find searches for a path from source to target. A search that exhausts
// the graph or the entity limit returns a Result with Found false and no
// error.
func (f *Finder) Find(ctx context.Context, source, target string) (Result, error) {
	res := Result{Source: source, Target: target}
	if source == "" || target == "" {
		return res, qerr.New(qerr.CodePathInputInvalid, "source and target are required",
			qerr.Field("source", source), qerr.Field("target", target))
	}
	w := f.cfg.Weights
	f.logger.Info("searching path",
		"source", source, "target", target,
		"alpha", w.Alpha, "beta", w.Beta, "gamma", w.Gamma,
		"entity_limit", f.cfg.EntityLimit,
	)

	fwd, bwd := newFrontier(source), newFrontier(target)
	visited := make(map[string]struct{})

	for len(visited) < f.cfg.EntityLimit {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		fwdTop, fwdOK := fwd.peek()
		bwdTop, bwdOK := bwd.peek()
		if !fwdOK && !bwdOK {
			break
		}
		fr, other := fwd, bwd
		if !fwdOK || (bwdOK && bwdTop.cost < fwdTop.cost) {
			fr, other = bwd, fwd
		}

		cur := fr.pop()
		visited[cur.id] = struct{}{}
		path, rels := fr.trace(cur.id)
		f.logger.Debug("visiting", "entity", cur.id, "from", fr.origin, "hops", len(rels), "cost", cur.cost, "visited", len(visited))

		switch {
		case cur.id == other.origin && fr == fwd:
			res.join(path, rels, nil, nil)
		case cur.id == other.origin:
			res.join(nil, nil, path, rels)
		case fwd.reached(cur.id) && bwd.reached(cur.id):
			fwdPath, fwdRels := fwd.trace(cur.id)
			bwdPath, bwdRels := bwd.trace(cur.id)
			res.join(fwdPath, fwdRels, bwdPath, bwdRels)
		}
		if res.Found {
			break
		}

		edges, err := f.graph.Neighbors(ctx, cur.id)
		if err != nil {
			return res, err
		}
		for _, e := range edges {
			if slices.Contains(path, e.Neighbor) {
				continue
			}
			candidate := append(slices.Clip(path), e.Neighbor)
			cost, err := f.Cost(ctx, candidate, other.origin)
			if err != nil {
				return res, err
			}
			fr.offer(cur.id, e.Relation, e.Neighbor, cost)
		}
	}

	res.Visited = len(visited)
	if res.Found {
		f.logger.Info("path found", "source", source, "target", target, "hops", len(res.Steps), "visited", res.Visited)
	} else {
		f.logger.Info("no path found", "source", source, "target", target, "visited", res.Visited)
	}
	return res, nil
}

// join assembles the result from a forward path source..meet and a backward
// path target..meet. Either may be empty when one frontier reached the other
// end on its own.
func (r *Result) join(fwdPath, fwdRels, bwdPath, bwdRels []string) {
	r.Found = true
	r.Steps = nil
	for i, rel := range fwdRels {
		r.Steps = append(r.Steps, Step{Relation: rel, Entity: fwdPath[i+1]})
	}
	for i := len(bwdRels) - 1; i >= 0; i-- {
		r.Steps = append(r.Steps, Step{Relation: bwdRels[i], Entity: bwdPath[i], Inverse: true})
	}
}

// Cost scores path, which starts at one end of the search, against goal,
// the other end.
func (f *Finder) Cost(ctx context.Context, path []string, goal string) (float64, error) {
	if len(path) == 0 {
		return 0, qerr.New(qerr.CodePathInputInvalid, "path is empty")
	}
	w := f.cfg.Weights
	var g1, g2, h float64

	if head := path[:len(path)-1]; w.Alpha != 0 && len(head) > 0 {
		var total float64
		for _, id := range head {
			d, err := f.distance.BetweenEntities(ctx, id, goal)
			if err != nil {
				return 0, err
			}
			total += d
		}
		g1 = w.Alpha * total / float64(len(head))
	}
	if w.Beta != 0 {
		g2 = w.Beta * float64(len(path)-1)
	}
	if w.Gamma != 0 {
		d, err := f.distance.BetweenEntities(ctx, path[len(path)-1], goal)
		if err != nil {
			return 0, err
		}
		h = w.Gamma * d
	}
	return g1 + g2 + h, nil
}
