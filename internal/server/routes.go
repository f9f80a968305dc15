// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/sync/singleflight"

	"github.com/quarry-kg/quarry/internal/sparql"
	"github.com/quarry-kg/quarry/pkg/health"
	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*healthOutput, error) {
		return &healthOutput{Body: healthBody{Status: "ok"}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Upstream health and cache sizes",
		Tags:        []string{"system"},
	}, s.handleStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "adjacent-entities",
		Method:      http.MethodGet,
		Path:        "/adjacent_entities",
		Summary:     "Bounded-depth neighborhood of an entity",
		Tags:        []string{"entities"},
	}, s.handleAdjacentEntities)

	huma.Register(s.api, huma.Operation{
		OperationID: "label-description",
		Method:      http.MethodGet,
		Path:        "/label_description",
		Summary:     "Label and description of an entity",
		Tags:        []string{"entities"},
	}, s.handleLabelDescription)

	huma.Register(s.api, huma.Operation{
		OperationID: "resolve-label",
		Method:      http.MethodGet,
		Path:        "/id",
		Summary:     "Entity id for a surface label",
		Tags:        []string{"entities"},
	}, s.handleID)

	huma.Register(s.api, huma.Operation{
		OperationID: "distance",
		Method:      http.MethodGet,
		Path:        "/distance",
		Summary:     "Cosine distance between two texts",
		Tags:        []string{"embeddings"},
	}, s.handleDistance)
}

// shared runs fn once for all concurrent callers using the same key.
func shared[T any](g *singleflight.Group, key string, fn func() (T, error)) (T, error) {
	v, err, _ := g.Do(key, func() (any, error) { return fn() })
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// toHTTPError maps a domain error onto a huma status error.
func (s *Server) toHTTPError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return huma.Error503ServiceUnavailable("request cancelled")
	}
	status := qerr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("lookup failed", "operation", op, "error", err)
	}
	return huma.NewError(status, err.Error())
}

type healthBody struct {
	Status string `json:"status" example:"ok" doc:"Health status"`
}

type healthOutput struct {
	Body healthBody
}

type statusBody struct {
	Gateway *health.Metrics `json:"gateway,omitempty" doc:"SPARQL endpoint health"`
	Cache   map[string]int  `json:"cache,omitempty" doc:"Entries per cache kind"`
}

type statusOutput struct {
	Body statusBody
}

func (s *Server) handleStatus(_ context.Context, _ *struct{}) (*statusOutput, error) {
	if s.services.status == nil {
		return nil, huma.Error503ServiceUnavailable("status service not available")
	}
	m := s.services.status.Metrics()
	counts := make(map[string]int)
	for kind, n := range s.services.status.Counts() {
		counts[string(kind)] = n
	}
	return &statusOutput{Body: statusBody{Gateway: &m, Cache: counts}}, nil
}

type adjacentInput struct {
	Entity string `query:"entity" required:"true" doc:"Root entity id, e.g. Q42"`
	// maximum mirrors sparql.DepthLimit; resolver.max_depth may be lower.
	Depth int `query:"depth" required:"true" maximum:"10" doc:"Number of hops, at least 1 and at most resolver.max_depth"`
}

type adjacentOutput struct {
	Body sparql.Neighborhood
}

func (s *Server) handleAdjacentEntities(ctx context.Context, in *adjacentInput) (*adjacentOutput, error) {
	key := fmt.Sprintf("adjacent:%s:%d", in.Entity, in.Depth)
	n, err := shared(&s.flight, key, func() (sparql.Neighborhood, error) {
		return s.services.entities.Expand(ctx, in.Entity, in.Depth)
	})
	if err != nil {
		return nil, s.toHTTPError("adjacent_entities", err)
	}
	return &adjacentOutput{Body: n}, nil
}

type entityInput struct {
	Entity string `query:"entity" required:"true" doc:"Entity id, e.g. Q42"`
}

type labelDescriptionBody struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

type labelDescriptionOutput struct {
	Body labelDescriptionBody
}

func (s *Server) handleLabelDescription(ctx context.Context, in *entityInput) (*labelDescriptionOutput, error) {
	e, err := s.services.entities.LabelDescription(ctx, in.Entity)
	if err != nil {
		return nil, s.toHTTPError("label_description", err)
	}
	return &labelDescriptionOutput{Body: labelDescriptionBody{Label: e.Label, Description: e.Description}}, nil
}

type idInput struct {
	Label string `query:"label" required:"true" doc:"Surface text to resolve"`
}

type idBody struct {
	ID string `json:"id" doc:"Entity id, empty when nothing matched"`
}

type idOutput struct {
	Body idBody
}

func (s *Server) handleID(ctx context.Context, in *idInput) (*idOutput, error) {
	id, err := shared(&s.flight, "id:"+in.Label, func() (string, error) {
		return s.services.entities.ResolveMention(ctx, in.Label)
	})
	if err != nil {
		return nil, s.toHTTPError("id", err)
	}
	return &idOutput{Body: idBody{ID: id}}, nil
}

type distanceInput struct {
	StringA string `query:"string_a" required:"true"`
	StringB string `query:"string_b" required:"true"`
}

type distanceBody struct {
	Distance float64 `json:"distance" doc:"Cosine distance in [0, 2]"`
}

type distanceOutput struct {
	Body distanceBody
}

func (s *Server) handleDistance(ctx context.Context, in *distanceInput) (*distanceOutput, error) {
	if s.services.distances == nil || !s.services.distances.Available() {
		return nil, huma.Error503ServiceUnavailable("distance service not available")
	}
	d, err := s.services.distances.Between(ctx, in.StringA, in.StringB)
	if err != nil {
		return nil, s.toHTTPError("distance", err)
	}
	return &distanceOutput{Body: distanceBody{Distance: d}}, nil
}
