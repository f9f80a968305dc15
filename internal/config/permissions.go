// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

//go:build !windows

package config

import (
	"io/fs"
	"log/slog"
	"os"
)

// WarnInsecurePermissions logs a warning when the config file at path can be
// read by group or others, since it may hold provider API keys.
func WarnInsecurePermissions(path string) {
	if path == "" {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		slog.Debug("could not stat config file for permission check", "path", path, "error", err)
		return
	}
	const readableByOthers fs.FileMode = 0o044
	if info.Mode().Perm()&readableByOthers != 0 {
		slog.Warn("config file is readable by other users; api keys may leak",
			"path", path, "mode", info.Mode(), "recommended", "0600")
	}
}
