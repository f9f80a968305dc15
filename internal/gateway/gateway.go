// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/quarry-kg/quarry/internal/sparql"
	"github.com/quarry-kg/quarry/pkg/health"
)

// DefaultDelay is the pause enforced after every endpoint call.
const DefaultDelay = 3 * time.Second

// Gateway wraps an Endpoint so that at most one call is in flight, every
// call is followed by Delay, and endpoint failures degrade to no rows.
type Gateway struct {
	mu       sync.Mutex
	endpoint Endpoint
	delay    time.Duration
	health   *HealthTracker
	logger   *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger used for failure reports.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithHealthTracker replaces the default tracker.
func WithHealthTracker(h *HealthTracker) Option {
	return func(g *Gateway) { g.health = h }
}

// New returns a gateway around endpoint. A negative delay is treated as zero.
func New(endpoint Endpoint, delay time.Duration, opts ...Option) *Gateway {
	if delay < 0 {
		delay = 0
	}
	tracker, _ := NewHealthTracker(DefaultHealthCooldown)
	g := &Gateway{
		endpoint: endpoint,
		delay:    delay,
		health:   tracker,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Query runs query text through the endpoint. Endpoint failures are logged
// and reported as nil rows with a nil error; the only errors returned come
// from ctx. The call and the following delay hold the gateway lock, so
// concurrent callers are strictly serialized.
func (g *Gateway) Query(ctx context.Context, query string) ([]sparql.Row, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := g.endpoint.Query(ctx, query)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		g.health.RecordFailure(err)
		g.logger.Warn("sparql query failed, continuing with empty result", "error", err)
		rows = nil
	} else {
		g.health.RecordSuccess()
	}

	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (g *Gateway) wait(ctx context.Context) error {
	if g.delay == 0 {
		return nil
	}
	timer := time.NewTimer(g.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Metrics reports call and failure counts.
func (g *Gateway) Metrics() health.Metrics {
	return g.health.Metrics()
}
