// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package secrets

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/viper"

	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

const scheme = "keyring://"

// IsKeyringURI reports whether value is a keyring:// reference.
func IsKeyringURI(value string) bool {
	return strings.HasPrefix(value, scheme)
}

// ParseKeyringURI splits keyring://service/key.
func ParseKeyringURI(uri string) (service, key string, err error) {
	if !IsKeyringURI(uri) {
		return "", "", qerr.Errorf(qerr.CodeSecretInputInvalid, "not a keyring URI: %q", uri)
	}
	service, key, ok := strings.Cut(strings.TrimPrefix(uri, scheme), "/")
	if !ok || service == "" || key == "" {
		return "", "", qerr.Errorf(qerr.CodeSecretInputInvalid, "invalid keyring URI %q: expected keyring://service/key", uri)
	}
	return service, key, nil
}

// Resolve returns the secret a keyring URI points at, or value unchanged
// when it is not a keyring URI.
func Resolve(store Store, value string) (string, error) {
	if !IsKeyringURI(value) {
		return value, nil
	}
	service, key, err := ParseKeyringURI(value)
	if err != nil {
		return "", err
	}
	secret, err := store.Retrieve(service, key)
	if err != nil {
		return "", qerr.Wrapf(err, qerr.CodeSecretResolveFailure, "resolving %q", value)
	}
	return secret, nil
}

// Reference is one config key whose value is a keyring URI.
type Reference struct {
	ConfigKey string
	Service   string
	Key       string
	Err       error // nil when the secret was substituted
}

// ResolveViper replaces every keyring URI held by v with its secret and
// reports each reference it saw, ordered by config key. Failures are logged
// and leave the URI in place, so the component that needs the value reports
// the problem when it is used.
func ResolveViper(v *viper.Viper, store Store) []Reference {
	keys := v.AllKeys()
	sort.Strings(keys)

	var refs []Reference
	for _, key := range keys {
		val := v.GetString(key)
		if !IsKeyringURI(val) {
			continue
		}
		ref := Reference{ConfigKey: key}
		ref.Service, ref.Key, ref.Err = ParseKeyringURI(val)
		if ref.Err == nil {
			var resolved string
			resolved, ref.Err = Resolve(store, val)
			if ref.Err == nil {
				v.Set(key, resolved)
			}
		}
		if ref.Err != nil {
			slog.Warn("failed to resolve keyring URI, keeping original value", "config_key", key, "error", ref.Err)
		}
		refs = append(refs, ref)
	}
	return refs
}
