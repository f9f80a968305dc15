// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package refine_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/quarry-kg/quarry/internal/kg"
	"github.com/quarry-kg/quarry/internal/refine"
	"github.com/quarry-kg/quarry/internal/resolver"
	qerr "github.com/quarry-kg/quarry/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pair(la, da, lb, db string) kg.CandidatePair {
	return kg.CandidatePair{
		IDA: "Q1", IDB: "Q2", SourceQueryID: "7",
		LabelA: la, DescriptionA: da,
		LabelB: lb, DescriptionB: db,
	}
}

func TestRefineRules(t *testing.T) {
	r := refine.New("")

	tests := []struct {
		name   string
		pair   kg.CandidatePair
		reason refine.Reason
		ok     bool
	}{
		{"accepted", pair("Paris", "capital of France", "France", "country in Western Europe"), refine.ReasonNone, true},
		{"missing description a", pair("Paris", "", "France", "country"), refine.ReasonMissingDescription, false},
		{"missing description b", pair("Paris", "capital", "France", ""), refine.ReasonMissingDescription, false},
		{"label as description", pair("Foo", "Foo", "Bar", "a bar"), refine.ReasonLabelAsDescription, false},
		{"label as description b", pair("Foo", "a foo", "Bar", "Bar"), refine.ReasonLabelAsDescription, false},
		{"wikimedia marker", pair("Paris", "Wikimedia disambiguation page", "France", "country"), refine.ReasonMarker, false},
		{"marker in b", pair("Paris", "capital", "List", "Wikimedia list article"), refine.ReasonMarker, false},
		{"missing wins over marker", pair("Paris", "", "X", "Wikimedia category"), refine.ReasonMissingDescription, false},
		{"label rule wins over marker", pair("Wikimedia", "Wikimedia", "X", "y"), refine.ReasonLabelAsDescription, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refined, reason, ok := r.Refine(tt.pair)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.reason, reason)
			if ok {
				assert.Equal(t, tt.pair, refined.CandidatePair)
			}
		})
	}
}

func TestRefineCustomMarker(t *testing.T) {
	r := refine.New("Category")
	_, reason, ok := r.Refine(pair("A", "Category page", "B", "b"))
	assert.False(t, ok)
	assert.Equal(t, refine.ReasonMarker, reason)

	_, _, ok = r.Refine(pair("A", "Wikimedia page", "B", "b"))
	assert.True(t, ok)
}

// staticLabels serves a fixed entity table.
type staticLabels struct {
	entities map[string]kg.Entity
	asked    []string
}

func (s *staticLabels) ResolveLabels(_ context.Context, ids []string) (resolver.BatchStats, error) {
	s.asked = append(s.asked, ids...)
	return resolver.BatchStats{Requested: len(ids)}, nil
}

func (s *staticLabels) CachedEntity(id string) kg.Entity {
	return s.entities[id]
}

func TestRunWritesConciseAndVerbose(t *testing.T) {
	labels := &staticLabels{entities: map[string]kg.Entity{
		"Q90":  {ID: "Q90", Label: "Paris", Description: "capital of France"},
		"Q142": {ID: "Q142", Label: "France", Description: "country in Western Europe"},
		"Q5":   {ID: "Q5", Label: "human", Description: "human"},
		"Q7":   {ID: "Q7", Label: "Paris", Description: "Wikimedia disambiguation page"},
	}}
	in := strings.NewReader("wikidata_id_a,wikidata_id_b,trec_id\n" +
		"Q90,Q142,1\n" +
		"Q90,Q5,2\n" +
		"Q7,Q142,3\n" +
		"Q90,Q404,4\n")

	var concise, verbose bytes.Buffer
	runner := refine.Runner{Refiner: refine.New(""), Labels: labels}
	stats, err := runner.Run(context.Background(), in, &concise, &verbose)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Read)
	assert.Equal(t, 1, stats.Accepted)
	assert.Equal(t, map[refine.Reason]int{
		refine.ReasonLabelAsDescription: 1,
		refine.ReasonMarker:             1,
		refine.ReasonMissingDescription: 1,
	}, stats.Rejected)
	assert.Len(t, labels.asked, 8, "every id is prefetched in one batch call")

	assert.Equal(t, "wikidata_id_a,wikidata_id_b,trec_id\nQ90,Q142,1\n", concise.String())
	assert.Equal(t,
		"wikidata_id_a,wikidata_id_b,trec_id,label_a,label_b,description_a,description_b\n"+
			"Q90,Q142,1,Paris,France,capital of France,country in Western Europe\n",
		verbose.String())
}

func TestRunEmptyInput(t *testing.T) {
	var concise, verbose bytes.Buffer
	runner := refine.Runner{Refiner: refine.New(""), Labels: &staticLabels{}}
	stats, err := runner.Run(context.Background(), strings.NewReader(""), &concise, &verbose)
	require.NoError(t, err)
	assert.Zero(t, stats.Read)
	assert.Equal(t, "wikidata_id_a,wikidata_id_b,trec_id\n", concise.String())
}

func TestRunRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing header", "Q1,Q2,3\n"},
		{"short record", "wikidata_id_a,wikidata_id_b,trec_id\nQ1,Q2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var concise, verbose bytes.Buffer
			runner := refine.Runner{Refiner: refine.New(""), Labels: &staticLabels{}}
			_, err := runner.Run(context.Background(), strings.NewReader(tt.input), &concise, &verbose)
			require.Error(t, err)
			assert.True(t, qerr.HasCode(err, qerr.CodePipelineInputInvalid))
		})
	}
}
