// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package sparql

import (
	"encoding/json"
	"io"

	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

// Binding is one bound value in a result row.
type Binding struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	Lang  string `json:"xml:lang,omitempty"`
}

// Row maps variable names (without '?') to their bindings. Unbound
// optional variables are absent.
type Row map[string]Binding

// Get returns the value bound to v.
func (r Row) Get(v Var) (string, bool) {
	b, ok := r[string(v)]
	return b.Value, ok
}

// Results is the SPARQL 1.1 JSON results document.
type Results struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []Row `json:"bindings"`
	} `json:"results"`
}

// DecodeResults reads a SPARQL JSON results document and returns its rows.
func DecodeResults(r io.Reader) ([]Row, error) {
	var res Results
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, qerr.Errorf(qerr.CodeGatewayResponseInvalid, "decoding sparql results: %w", err)
	}
	return res.Results.Bindings, nil
}
