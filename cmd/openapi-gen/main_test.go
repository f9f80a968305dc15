// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSpec(t *testing.T) {
	spec, err := generateSpec()
	require.NoError(t, err)

	var doc struct {
		OpenAPI string                     `json:"openapi"`
		Paths   map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(spec, &doc))
	assert.Contains(t, doc.OpenAPI, "3.1")
	for _, path := range []string{"/health", "/api/v1/status", "/adjacent_entities", "/label_description", "/id", "/distance"} {
		assert.Contains(t, doc.Paths, path)
	}
}

func TestRun_WritesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "spec.json")
	require.NoError(t, run(out))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, json.Valid(raw))
}
