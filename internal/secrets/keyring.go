// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package secrets

import (
	"encoding/json"
	"errors"
	"log/slog"
	"slices"

	"github.com/zalando/go-keyring"

	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

// indexSuffix names the entry holding a service's key list, since the OS
// keyrings cannot enumerate keys.
const indexSuffix = "::index"

// KeyringStore is a Store over the OS keyring.
type KeyringStore struct{}

func NewKeyringStore() *KeyringStore { return &KeyringStore{} }

var _ Store = (*KeyringStore)(nil)

func checkName(op, service, key string) error {
	if service == "" || key == "" {
		return qerr.New(qerr.CodeSecretInputInvalid, "secret "+op+": service and key must not be empty",
			qerr.Field("service", service), qerr.Field("key", key))
	}
	return nil
}

func (s *KeyringStore) Store(service, key, value string) error {
	if err := checkName("store", service, key); err != nil {
		return err
	}
	if err := keyring.Set(service, key, value); err != nil {
		return qerr.Wrapf(err, qerr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}
	keys, err := s.index(service)
	if err != nil {
		return err
	}
	if slices.Contains(keys, key) {
		return nil
	}
	return s.saveIndex(service, append(keys, key))
}

func (s *KeyringStore) Retrieve(service, key string) (string, error) {
	if err := checkName("retrieve", service, key); err != nil {
		return "", err
	}
	val, err := keyring.Get(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", qerr.Errorf(qerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	if err != nil {
		return "", qerr.Wrapf(err, qerr.CodeSecretStoreFailure, "retrieving secret %s/%s", service, key)
	}
	return val, nil
}

func (s *KeyringStore) Delete(service, key string) error {
	if err := checkName("delete", service, key); err != nil {
		return err
	}
	err := keyring.Delete(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return qerr.Errorf(qerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	if err != nil {
		return qerr.Wrapf(err, qerr.CodeSecretDeleteFailure, "deleting secret %s/%s", service, key)
	}
	keys, err := s.index(service)
	if err != nil {
		return err
	}
	return s.saveIndex(service, slices.DeleteFunc(keys, func(k string) bool { return k == key }))
}

func (s *KeyringStore) List(service string) ([]string, error) {
	return s.index(service)
}

func (s *KeyringStore) index(service string) ([]string, error) {
	raw, err := keyring.Get(service, service+indexSuffix)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, qerr.Wrapf(err, qerr.CodeSecretListFailure, "loading key index for %s", service)
	}
	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, qerr.Wrapf(err, qerr.CodeSecretListFailure, "decoding key index for %s", service)
	}
	return keys, nil
}

func (s *KeyringStore) saveIndex(service string, keys []string) error {
	indexKey := service + indexSuffix
	if len(keys) == 0 {
		if err := keyring.Delete(service, indexKey); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			slog.Debug("failed to remove empty key index", "service", service, "error", err)
		}
		return nil
	}
	data, err := json.Marshal(keys)
	if err != nil {
		return qerr.Wrapf(err, qerr.CodeSecretListFailure, "encoding key index for %s", service)
	}
	if err := keyring.Set(service, indexKey, string(data)); err != nil {
		return qerr.Wrapf(err, qerr.CodeSecretListFailure, "saving key index for %s", service)
	}
	return nil
}
