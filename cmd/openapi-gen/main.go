// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

// Command openapi-gen writes the OpenAPI document of the lookup service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/quarry-kg/quarry/internal/kg"
	"github.com/quarry-kg/quarry/internal/server"
	"github.com/quarry-kg/quarry/internal/sparql"
	"github.com/quarry-kg/quarry/internal/store"
	"github.com/quarry-kg/quarry/pkg/health"
	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

func main() {
	outPath := "api/openapi/spec.json"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}
	if err := run(outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("OpenAPI spec written to %s\n", outPath)
}

func run(outPath string) error {
	doc, err := generateSpec()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return qerr.Errorf(qerr.CodeCLISetupFailure, "creating output dir: %w", err)
	}
	if err := os.WriteFile(outPath, doc, 0o644); err != nil {
		return qerr.Errorf(qerr.CodeCLISetupFailure, "writing spec: %w", err)
	}
	return nil
}

// generateSpec registers every route against stub services and marshals the
// document huma derives from the handler types.
func generateSpec() ([]byte, error) {
	svc, err := server.NewServices(stubEntities{}, stubDistances{}, stubStatus{})
	if err != nil {
		return nil, err
	}
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"}, svc)
	if err != nil {
		return nil, qerr.Errorf(qerr.CodeCLISetupFailure, "creating server: %w", err)
	}
	return json.MarshalIndent(srv.API().OpenAPI(), "", "  ")
}

// Stubs are never called during generation.

type stubEntities struct{}

func (stubEntities) Expand(context.Context, string, int) (sparql.Neighborhood, error) {
	return sparql.Neighborhood{}, nil
}

func (stubEntities) LabelDescription(context.Context, string) (kg.Entity, error) {
	return kg.Entity{}, nil
}

func (stubEntities) ResolveMention(context.Context, string) (string, error) { return "", nil }

type stubDistances struct{}

func (stubDistances) Available() bool                                          { return false }
func (stubDistances) Between(context.Context, string, string) (float64, error) { return 0, nil }

type stubStatus struct{}

func (stubStatus) Metrics() health.Metrics    { return health.Metrics{} }
func (stubStatus) Counts() map[store.Kind]int { return nil }
