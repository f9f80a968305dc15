// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/quarry-kg/quarry/internal/cache"
	"github.com/quarry-kg/quarry/internal/embed"
	"github.com/quarry-kg/quarry/internal/gateway"
	"github.com/quarry-kg/quarry/internal/server"
	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

// metricsInterval is how often serve logs gateway health and cache sizes.
const metricsInterval = time.Minute

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve entity lookups over HTTP",
		Long:  "Start the HTTP lookup service. Cache misses are filled through the rate-limited SPARQL gateway.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), v)
		},
	}
	cmd.Flags().String("listen", "", "listen address (overrides server.listen)")
	_ = v.BindPFlag("server.listen", cmd.Flags().Lookup("listen"))
	return cmd
}

// status reports gateway health next to cache sizes.
type status struct {
	*gateway.Gateway
	*cache.Cache
}

func runServe(ctx context.Context, v *viper.Viper) error {
	a, err := wire(ctx, v)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	embedder, err := embed.New(a.cfg.EmbedConfig())
	if err != nil {
		a.logger.Warn("distance endpoint serves cached values only", "error", err)
	}
	distances := embed.NewDistances(a.cache, embedder)

	svc, err := server.NewServices(a.resolver, distances, status{a.gateway, a.cache})
	if err != nil {
		return err
	}
	srv, err := server.New(server.Config{
		ListenAddr:  a.cfg.Server.Listen,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		Version:     version,
	}, svc)
	if err != nil {
		return qerr.Errorf(qerr.CodeCLISetupFailure, "creating server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	g.Go(func() error {
		logMetrics(gctx, a.logger, a.gateway, a.cache)
		return nil
	})
	return g.Wait()
}

// logMetrics logs gateway health and cache sizes until ctx ends.
func logMetrics(ctx context.Context, logger *slog.Logger, gw *gateway.Gateway, c *cache.Cache) {
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m := gw.Metrics()
			logger.Info("serve metrics",
				"calls", m.Calls,
				"failures", m.FailureCount,
				"consecutive_failures", m.ConsecutiveFailures,
				"upstream_available", m.Available,
				"cached", c.Counts(),
			)
		}
	}
}
