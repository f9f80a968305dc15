// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

// Package secrets keeps provider credentials out of config files. Config
// values written as keyring://service/key are replaced with the secret held
// in the OS keyring.
package secrets

// ServiceName is the keyring service Quarry stores its own secrets under.
const ServiceName = "quarry"

// Store saves and looks up named secrets.
type Store interface {
	Store(service, key, value string) error
	// Retrieve returns a CodeSecretNotFound error for unknown keys.
	Retrieve(service, key string) (string, error)
	Delete(service, key string) error
	List(service string) ([]string, error)
}
