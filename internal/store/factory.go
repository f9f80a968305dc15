// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package store

import (
	"sort"
	"sync"

	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

// Factory creates a backend from config.
type Factory func(cfg Config) (Backend, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// DefaultBackend is used when Config.Backend is empty.
const DefaultBackend = "json"

// RegisterBackend registers a named backend. Backend packages call this
// from init(). Goroutine-safe.
func RegisterBackend(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Backends lists registered backend names.
func Backends() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resolveBackend(cfg Config) string {
	if cfg.Backend == "" {
		return DefaultBackend
	}
	return cfg.Backend
}

// Open creates the backend named by cfg.
func Open(cfg Config) (Backend, error) {
	name := resolveBackend(cfg)

	factoriesMu.RLock()
	f, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, qerr.New(qerr.CodeStoreBackendUnsupported, "unsupported storage backend",
			qerr.FieldBackend(name))
	}
	return f(cfg)
}
