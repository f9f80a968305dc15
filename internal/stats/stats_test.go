// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package stats_test

import (
	"strings"
	"testing"

	"github.com/quarry-kg/quarry/internal/stats"
	qerr "github.com/quarry-kg/quarry/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	in := "wikidata_id_a,wikidata_id_b,trec_id\n" +
		"Q1,Q2,1\n" +
		"Q1,Q3,1\n" +
		"Q1,Q2,2\n" +
		"Q4,Q5,3\n"

	s, err := stats.Summarize("pairs.csv", strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, 4, s.Queries)
	assert.Equal(t, 5, s.Entities)
	assert.Equal(t, map[string]int{"Q1": 3, "Q2": 2, "Q3": 1, "Q4": 1, "Q5": 1}, s.Occurrences)
	assert.Equal(t, 1, s.Min)
	assert.Equal(t, 3, s.Max)
	assert.InDelta(t, 1.6, s.Mean, 1e-9)
	assert.InDelta(t, 1.0, s.Median, 1e-9)
	assert.Equal(t, []stats.Bucket{
		{Occurrences: 1, Entities: 3},
		{Occurrences: 2, Entities: 1},
		{Occurrences: 3, Entities: 1},
	}, s.Histogram)
}

func TestSummarizeEvenMedianAndNoHeader(t *testing.T) {
	s, err := stats.Summarize("x", strings.NewReader("Q1,Q2,1\nQ1,Q1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Queries)
	assert.InDelta(t, 2.0, s.Median, 1e-9)
}

func TestSummarizeEmpty(t *testing.T) {
	s, err := stats.Summarize("empty", strings.NewReader("wikidata_id_a,wikidata_id_b,trec_id\n"))
	require.NoError(t, err)
	assert.Zero(t, s.Queries)
	assert.Empty(t, s.Histogram)
	assert.Contains(t, stats.Render(s, 40), "empty")
}

func TestSummarizeRejectsShortRecord(t *testing.T) {
	_, err := stats.Summarize("bad", strings.NewReader("Q1\n"))
	require.Error(t, err)
	assert.True(t, qerr.IsInvalidInput(err))
}

func TestRender(t *testing.T) {
	s, err := stats.Summarize("pairs.csv", strings.NewReader("Q1,Q2,1\nQ1,Q3,2\n"))
	require.NoError(t, err)

	out := stats.Render(s, 20)
	assert.Contains(t, out, "pairs.csv")
	assert.Contains(t, out, "1 min, 2 max")
	assert.Equal(t, 2, strings.Count(out, " | "), "one bar per histogram bucket")
}
