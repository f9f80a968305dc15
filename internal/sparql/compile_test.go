// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package sparql_test

import (
	"regexp"
	"strings"
	"testing"

	"github.com/quarry-kg/quarry/internal/sparql"
	qerr "github.com/quarry-kg/quarry/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var varPattern = regexp.MustCompile(`\?[A-Za-z0-9_]+`)

func selectClause(t *testing.T, text string) string {
	t.Helper()
	start := strings.Index(text, "SELECT ")
	end := strings.Index(text, "\nWHERE")
	require.True(t, start >= 0 && end > start, "query has SELECT and WHERE:\n%s", text)
	return text[start:end]
}

func TestNeighborhoodProjectionSize(t *testing.T) {
	c := sparql.DefaultCompiler()

	for _, depth := range []int{1, 2, 3, 5} {
		q, err := c.Neighborhood("Q42", depth)
		require.NoError(t, err)

		assert.Len(t, q.Select, 9*depth)
		vars := varPattern.FindAllString(selectClause(t, q.String()), -1)
		seen := make(map[string]bool)
		for _, v := range vars {
			assert.False(t, seen[v], "duplicate variable %s", v)
			seen[v] = true
		}
		assert.Len(t, seen, 9*depth)
	}
}

func TestHopVariablesAreInjective(t *testing.T) {
	seen := make(map[sparql.Var]int)
	for _, h := range sparql.Hops(4) {
		for _, v := range append(h.Selected(), h.Property) {
			prev, dup := seen[v]
			assert.False(t, dup, "variable %s used by hop %d and %d", v, prev, h.Index)
			seen[v] = h.Index
		}
	}
	assert.Len(t, seen, 4*10)
}

func TestNeighborhoodRootBindingAndChaining(t *testing.T) {
	q, err := sparql.DefaultCompiler().Neighborhood("Q42", 2)
	require.NoError(t, err)
	text := q.String()

	assert.Contains(t, text, "VALUES ?subject_id_0 { <http://www.wikidata.org/entity/Q42> }")
	assert.Contains(t, text, "BIND(?object_id_0 AS ?subject_id_1)")
	assert.NotContains(t, text, "BIND(?object_id_1")
	assert.Equal(t, 1, strings.Count(text, "VALUES"))
}

func TestNeighborhoodFilters(t *testing.T) {
	q, err := sparql.DefaultCompiler().Neighborhood("Q42", 2)
	require.NoError(t, err)
	text := q.String()

	for _, want := range []string{
		`STRSTARTS(STR(?subject_id_0), "http://www.wikidata.org/entity/Q")`,
		`STRSTARTS(STR(?predicate_id_1), "http://www.wikidata.org/prop/direct/P")`,
		`STRSTARTS(STR(?object_id_1), "http://www.wikidata.org/entity/Q")`,
		`LANG(?subject_label_0) = "en"`,
		`LANG(?object_description_1) = "en"`,
		`!(CONTAINS(STR(?object_label_0), "Wiki"))`,
		`!(CONTAINS(STR(?object_description_1), "Wiki"))`,
		`!(CONTAINS(STR(?predicate_label_0), "Wiki"))`,
		`REGEX(STR(?object_label_1), "^[A-Za-z0-9 -]+$")`,
		`?property_0 wikibase:directClaim ?predicate_id_0 .`,
		`?predicate_id_0 != <http://www.wikidata.org/prop/direct/P1343>`,
		`?predicate_id_1 != <http://www.wikidata.org/prop/direct/P1343>`,
		"OPTIONAL {",
		"PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>",
	} {
		assert.Contains(t, text, want)
	}
}

func TestNeighborhoodRejectsInvalidInput(t *testing.T) {
	c := sparql.DefaultCompiler()

	tests := []struct {
		name  string
		root  string
		depth int
	}{
		{"zero depth", "Q42", 0},
		{"negative depth", "Q42", -3},
		{"above default max depth", "Q42", sparql.DefaultMaxDepth + 1},
		{"huge depth", "Q42", 1 << 40},
		{"empty root", "", 1},
		{"injection attempt", "Q42> } ?s ?p ?o { <x", 1},
		{"relation id as root", "P31", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := c.Neighborhood(tt.root, tt.depth)
			require.Error(t, err)
			assert.Nil(t, q)
			assert.True(t, qerr.IsInvalidInput(err))
			assert.True(t, qerr.HasCode(err, qerr.CodeQueryCompileInvalidInput))
		})
	}
}

func TestNeighborhoodMaxDepth(t *testing.T) {
	tests := []struct {
		name     string
		maxDepth int
		wantCap  int
	}{
		{"zero uses default", 0, sparql.DefaultMaxDepth},
		{"custom", 2, 2},
		{"above limit is lowered", 500, sparql.DepthLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := sparql.DefaultCompiler()
			c.MaxDepth = tt.maxDepth
			assert.Equal(t, tt.wantCap, c.DepthCap())

			q, err := c.Neighborhood("Q42", tt.wantCap)
			require.NoError(t, err)
			assert.Len(t, q.Select, 9*tt.wantCap)

			_, err = c.Neighborhood("Q42", tt.wantCap+1)
			assert.True(t, qerr.HasCode(err, qerr.CodeQueryCompileInvalidInput))
		})
	}
}

func TestHopsClampsDepth(t *testing.T) {
	assert.Empty(t, sparql.Hops(-1))
	assert.Len(t, sparql.Hops(1<<40), sparql.DepthLimit)
}

func TestLabelBatch(t *testing.T) {
	c := sparql.DefaultCompiler()

	q, err := c.LabelBatch([]string{"Q1", "Q2", "Q3"})
	require.NoError(t, err)
	text := q.String()

	assert.Equal(t, []sparql.Var{sparql.EntityIDVar, sparql.EntityLabelVar, sparql.EntityDescriptionVar}, q.Select)
	assert.Equal(t, 2, strings.Count(text, " UNION "))
	for _, id := range []string{"Q1", "Q2", "Q3"} {
		assert.Contains(t, text, "VALUES ?entity_id { <http://www.wikidata.org/entity/"+id+"> }")
	}

	_, err = c.LabelBatch(nil)
	assert.True(t, qerr.IsInvalidInput(err))
	_, err = c.LabelBatch([]string{"Q1", "bogus"})
	assert.True(t, qerr.IsInvalidInput(err))
}

func TestMentionVariants(t *testing.T) {
	c := sparql.DefaultCompiler()

	q, err := c.Mention("barack OBAMA")
	require.NoError(t, err)
	text := q.String()

	assert.True(t, q.Distinct)
	for _, want := range []string{
		`"barack OBAMA"@en`, `"barack OBAMA" .`,
		`"barack obama"@en`, `"barack obama" .`,
		`"Barack Obama"@en`, `"Barack Obama" .`,
		"<https://en.wikipedia.org/>",
	} {
		assert.Contains(t, text, want)
	}
	assert.Equal(t, 5, strings.Count(text, " UNION "))

	// Lower-case input collapses exact and lower variants.
	q, err = c.Mention("paris")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(q.String(), " UNION "))
}

func TestMentionEscapesLiterals(t *testing.T) {
	q, err := sparql.DefaultCompiler().Mention(`a "quoted" \ name`)
	require.NoError(t, err)
	assert.Contains(t, q.String(), `"a \"quoted\" \\ name"@en`)
}

func TestMentionRejectsBlank(t *testing.T) {
	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := sparql.DefaultCompiler().Mention(text)
		require.Error(t, err)
		assert.True(t, qerr.HasCode(err, qerr.CodeResolverMentionInvalid))
	}
}

func TestOutgoing(t *testing.T) {
	q, err := sparql.DefaultCompiler().Outgoing("Q64")
	require.NoError(t, err)
	assert.Equal(t, []sparql.Var{sparql.ObjectVar}, q.Select)
	text := q.String()
	assert.Contains(t, text, "<http://www.wikidata.org/entity/Q64>")
	assert.Contains(t, text, "?predicate_id != <http://www.wikidata.org/prop/direct/P1343>")
	assert.Contains(t, text, `LANG(?subject_label) = "en"`)
	assert.Contains(t, text, `REGEX(STR(?subject_label), "^[A-Za-z0-9 -]+$")`)
	assert.Contains(t, text, "?property wikibase:directClaim ?predicate_id .")
	assert.Contains(t, text, `LANG(?predicate_label) = "en"`)

	c := sparql.DefaultCompiler()
	c.ExcludedRelations = []string{"P31", "P279"}
	c.LabelPattern = ""
	q, err = c.Outgoing("Q64")
	require.NoError(t, err)
	text = q.String()
	assert.Contains(t, text, "!= <http://www.wikidata.org/prop/direct/P31>")
	assert.Contains(t, text, "!= <http://www.wikidata.org/prop/direct/P279>")
	assert.NotContains(t, text, "P1343")
	assert.NotContains(t, text, "REGEX")

	_, err = sparql.DefaultCompiler().Outgoing("64")
	assert.True(t, qerr.IsInvalidInput(err))
}

func TestIRIEscapesForbiddenCharacters(t *testing.T) {
	assert.Equal(t, sparql.Term("<http://x/a%20b%3E>"), sparql.IRI("http://x/a b>"))
}

