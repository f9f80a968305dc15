// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package pathfinder

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/quarry-kg/quarry/internal/kg"
	"github.com/quarry-kg/quarry/internal/sparql"
)

// Labels looks up cached labels for rendering.
type Labels interface {
	CachedEntity(id string) kg.Entity
	Relation(id string) kg.Relation
}

// Text renders a found path on one line, e.g.
//
//	Q64 (Berlin) -P17 (country)-> Q183 (Germany) <-P17 (country)- Q1055 (Hamburg)
//
// It returns "" when no path was found.
func (r Result) Text(l Labels) string {
	if !r.Found {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)", r.Source, l.CachedEntity(r.Source).Label)
	for _, s := range r.Steps {
		rel := l.Relation(s.Relation).Label
		entity := l.CachedEntity(s.Entity).Label
		if s.Inverse {
			fmt.Fprintf(&b, " <-%s (%s)- %s (%s)", s.Relation, rel, s.Entity, entity)
		} else {
			fmt.Fprintf(&b, " -%s (%s)-> %s (%s)", s.Relation, rel, s.Entity, entity)
		}
	}
	return b.String()
}

// WriteTurtle serializes a found path as Turtle: one statement per hop in
// graph direction carrying the subject's label and description, then the
// label and description of every relation used. Nothing but the prefixes is
// written when no path was found.
func (r Result) WriteTurtle(w io.Writer, l Labels, entities, relations kg.Namespace) error {
	bw := bufio.NewWriter(w)
	_, _ = bw.WriteString("@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .\n")
	_, _ = bw.WriteString("@prefix schema: <http://schema.org/> .\n")

	if r.Found {
		_, _ = bw.WriteString("\n")
		prev := r.Source
		var used []string
		seen := make(map[string]bool)
		for _, s := range r.Steps {
			subject, object := prev, s.Entity
			if s.Inverse {
				subject, object = s.Entity, prev
			}
			e := l.CachedEntity(subject)
			fmt.Fprintf(bw, "%s rdfs:label %s ; schema:description %s ; %s %s .\n",
				sparql.IRI(entities.IRI(subject)), sparql.Literal(e.Label), sparql.Literal(e.Description),
				sparql.IRI(relations.IRI(s.Relation)), sparql.IRI(entities.IRI(object)))
			if !seen[s.Relation] {
				seen[s.Relation] = true
				used = append(used, s.Relation)
			}
			prev = s.Entity
		}
		for _, id := range used {
			rel := l.Relation(id)
			fmt.Fprintf(bw, "%s rdfs:label %s ; schema:description %s .\n",
				sparql.IRI(relations.IRI(id)), sparql.Literal(rel.Label), sparql.Literal(rel.Description))
		}
	}
	return bw.Flush()
}
