// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package config

import (
	"bytes"
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"

	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

//go:embed quarry.yaml.default
var DefaultConfigYAML []byte

// templateDataDir is the storage.dir line of the embedded template.
var templateDataDir = []byte("  dir: ./data\n")

// DefaultConfigPath returns ~/.config/quarry/quarry.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", qerr.Errorf(qerr.CodeConfigLoadReadFailure, "resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "quarry", "quarry.yaml"), nil
}

// DefaultDataDir returns the per-user cache directory for quarry, so a
// bootstrapped config shares one entity cache across working directories.
func DefaultDataDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", qerr.Errorf(qerr.CodeConfigLoadReadFailure, "resolving cache directory: %w", err)
	}
	return filepath.Join(dir, "quarry"), nil
}

// RenderDefaultConfig returns the commented template with storage.dir set
// to dataDir. An empty dataDir keeps the template's ./data.
func RenderDefaultConfig(dataDir string) []byte {
	if dataDir == "" {
		return bytes.Clone(DefaultConfigYAML)
	}
	return bytes.Replace(DefaultConfigYAML, templateDataDir, []byte("  dir: "+dataDir+"\n"), 1)
}

// BootstrapConfig writes a default config on first run. It returns the path
// written, or "" when a config already existed or nothing could be written;
// failures only log at debug level.
func BootstrapConfig() string {
	cfgPath, err := DefaultConfigPath()
	if err != nil {
		slog.Debug("skipping config bootstrap", "error", err)
		return ""
	}
	dataDir, err := DefaultDataDir()
	if err != nil {
		slog.Debug("bootstrapped config keeps ./data", "error", err)
	}
	return bootstrapAt(cfgPath, dataDir)
}

func bootstrapAt(cfgPath, dataDir string) string {
	if _, err := os.Stat(cfgPath); err == nil {
		return ""
	}
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o700); err != nil {
		slog.Debug("skipping config bootstrap", "path", cfgPath, "error", err)
		return ""
	}
	if err := os.WriteFile(cfgPath, RenderDefaultConfig(dataDir), 0o600); err != nil {
		slog.Debug("skipping config bootstrap", "path", cfgPath, "error", err)
		return ""
	}
	slog.Info("created default config", "path", cfgPath, "data_dir", dataDir)
	return cfgPath
}
