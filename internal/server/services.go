// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package server

import (
	"context"

	"github.com/quarry-kg/quarry/internal/kg"
	"github.com/quarry-kg/quarry/internal/sparql"
	"github.com/quarry-kg/quarry/internal/store"
	"github.com/quarry-kg/quarry/pkg/health"
	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

// EntityService answers entity lookups, filling cache misses upstream.
type EntityService interface {
	Expand(ctx context.Context, id string, depth int) (sparql.Neighborhood, error)
	LabelDescription(ctx context.Context, id string) (kg.Entity, error)
	ResolveMention(ctx context.Context, mention string) (string, error)
}

// DistanceService computes text distances.
type DistanceService interface {
	Available() bool
	Between(ctx context.Context, a, b string) (float64, error)
}

// StatusService reports upstream health and cache sizes.
type StatusService interface {
	Metrics() health.Metrics
	Counts() map[store.Kind]int
}

// Services holds the dependencies route handlers call into.
type Services struct {
	entities  EntityService
	distances DistanceService // optional
	status    StatusService   // optional
}

// NewServices validates and bundles the services. distances and status may
// be nil; their endpoints then answer 503.
func NewServices(entities EntityService, distances DistanceService, status StatusService) (*Services, error) {
	if entities == nil {
		return nil, qerr.New(qerr.CodeServerConfigInvalid, "entity service is required")
	}
	return &Services{entities: entities, distances: distances, status: status}, nil
}
