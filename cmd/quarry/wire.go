// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/quarry-kg/quarry/internal/cache"
	"github.com/quarry-kg/quarry/internal/config"
	"github.com/quarry-kg/quarry/internal/gateway"
	"github.com/quarry-kg/quarry/internal/resolver"
	"github.com/quarry-kg/quarry/internal/store"
	_ "github.com/quarry-kg/quarry/internal/store/jsonfile" // register json backend
	_ "github.com/quarry-kg/quarry/internal/store/redis"    // register redis backend
	_ "github.com/quarry-kg/quarry/internal/store/sqlite"   // register sqlite backend
	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

// app holds the subsystems a command runs against.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	cache    *cache.Cache
	gateway  *gateway.Gateway
	resolver *resolver.Resolver

	closeLog func() error
}

// loadConfig builds and validates the effective configuration.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	return config.FromViper(v)
}

// newLogger sets up the process logger tagged with a fresh run id and makes
// it the slog default.
func newLogger(v *viper.Viper, cfg *config.Config) (*slog.Logger, func() error, error) {
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	if v.GetBool("verbose") {
		level = slog.LevelDebug
	}
	logger, closeLog := config.SetupLogger(cfg.Log.File, level)
	logger = logger.With("run_id", uuid.NewString())
	slog.SetDefault(logger)
	return logger, closeLog, nil
}

// wire opens the cache and builds the gateway and resolver.
func wire(ctx context.Context, v *viper.Viper) (*app, error) {
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, err
	}
	logger, closeLog, err := newLogger(v, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, closeLog: closeLog}

	if cfg.Storage.Backend != "redis" {
		if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
			_ = a.Close()
			return nil, qerr.Errorf(qerr.CodeCLISetupFailure, "creating data directory: %w", err)
		}
	}

	backend, err := store.Open(cfg.StoreConfig())
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.cache, err = cache.Open(ctx, backend)
	if err != nil {
		_ = backend.Close()
		_ = a.Close()
		return nil, err
	}

	endpoint, err := gateway.NewHTTPEndpoint(cfg.EndpointConfig())
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.gateway = gateway.New(endpoint, cfg.SPARQL.Delay, gateway.WithLogger(logger.With("component", "gateway")))

	r, err := resolver.New(a.cache, a.gateway, cfg.Compiler(), cfg.ResolverConfig())
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.resolver = r.WithLogger(logger.With("component", "resolver"))

	logger.Debug("wired",
		"backend", cfg.Storage.Backend,
		"endpoint", cfg.SPARQL.Endpoint,
		"delay", cfg.SPARQL.Delay,
	)
	return a, nil
}

// Close releases the cache and the log file.
func (a *app) Close() error {
	var errs []error
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if a.closeLog != nil {
		errs = append(errs, a.closeLog())
	}
	return errors.Join(errs...)
}
