// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package config

import (
	"log/slog"

	"github.com/joho/godotenv"
)

// LoadDotEnv copies variables from .env files into the process environment
// without overriding variables already set. With no paths it reads ./.env.
// A missing file is not an error.
func LoadDotEnv(paths ...string) {
	if err := godotenv.Load(paths...); err != nil {
		slog.Debug("no .env file loaded, using process environment", "error", err)
	}
}
