// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package store

// Config controls which backend Open uses and where it keeps data.
type Config struct {
	Backend string // "json" (default), "sqlite" or "redis"
	Dir     string // data directory for file-based backends
	Redis   RedisConfig
}

// RedisConfig is used by the redis backend only.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}
