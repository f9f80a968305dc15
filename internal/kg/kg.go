// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

// Package kg holds the knowledge-graph value types shared by the query
// compiler, the cache and the dataset pipeline.
package kg

import (
	"sort"
	"strings"
)

// Entity is a knowledge-graph node with its English label and description.
// Empty strings mean the value is unknown or was looked up and missing.
type Entity struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Relation is a direct-claim property.
type Relation struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Namespace maps opaque identifiers into IRIs, e.g. Base
// "http://www.wikidata.org/entity/" with Prefix "Q".
type Namespace struct {
	Base   string
	Prefix string
}

// IRI returns the full IRI for id.
func (n Namespace) IRI(id string) string {
	return n.Base + id
}

// Contains reports whether iri names an identifier in this namespace.
func (n Namespace) Contains(iri string) bool {
	return strings.HasPrefix(iri, n.Base+n.Prefix)
}

// ValidID reports whether id is the namespace prefix followed by one or more
// digits. Only valid ids are ever interpolated into query text.
func (n Namespace) ValidID(id string) bool {
	digits, ok := strings.CutPrefix(id, n.Prefix)
	if !ok || digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IDFromURI returns the terminal path segment of a URI.
func IDFromURI(uri string) string {
	if i := strings.LastIndexByte(uri, '/'); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

// Edge is one adjacency entry: the relation followed and the entity reached.
type Edge struct {
	Relation string `json:"relation"`
	Neighbor string `json:"neighbor"`
}

// String returns the "relationId-neighborId" token form, e.g. "P31-Q5".
func (e Edge) String() string {
	return e.Relation + "-" + e.Neighbor
}

// ParseEdge parses an edge token. Identifiers never contain '-', so the
// token splits on its first separator.
func ParseEdge(token string) (Edge, bool) {
	rel, neighbor, ok := strings.Cut(token, "-")
	if !ok || rel == "" || neighbor == "" {
		return Edge{}, false
	}
	return Edge{Relation: rel, Neighbor: neighbor}, true
}

// EdgeSet is a set of edge tokens.
type EdgeSet map[string]struct{}

// Add inserts e into the set.
func (s EdgeSet) Add(e Edge) {
	s[e.String()] = struct{}{}
}

// Tokens returns the set members sorted.
func (s EdgeSet) Tokens() []string {
	out := make([]string, 0, len(s))
	for tok := range s {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// ParseEdges converts tokens back to edges, skipping malformed entries.
func ParseEdges(tokens []string) []Edge {
	edges := make([]Edge, 0, len(tokens))
	for _, tok := range tokens {
		if e, ok := ParseEdge(tok); ok {
			edges = append(edges, e)
		}
	}
	return edges
}

// EdgeTokens converts edges to their sorted, de-duplicated token form.
func EdgeTokens(edges []Edge) []string {
	set := make(EdgeSet, len(edges))
	for _, e := range edges {
		set.Add(e)
	}
	return set.Tokens()
}
