// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

// Package stats summarizes entity-pair datasets.
package stats

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/quarry-kg/quarry/internal/kg"
	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

// Bucket is one histogram bar: how many entities occur Occurrences times.
type Bucket struct {
	Occurrences int `json:"occurrences"`
	Entities    int `json:"entities"`
}

// Summary describes the entity distribution of one pair file.
type Summary struct {
	Name        string         `json:"name"`
	Queries     int            `json:"queries"`
	Entities    int            `json:"entities"`
	Occurrences map[string]int `json:"-"`
	Min         int            `json:"min"`
	Max         int            `json:"max"`
	Mean        float64        `json:"mean"`
	Median      float64        `json:"median"`
	Histogram   []Bucket       `json:"histogram"`
}

// Summarize reads a pair CSV (with header) and counts how often every entity
// id appears on either side of a pair.
func Summarize(name string, r io.Reader) (Summary, error) {
	s := Summary{Name: name, Occurrences: make(map[string]int)}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return s, qerr.Errorf(qerr.CodePipelineInputInvalid, "reading %s: %w", name, err)
		}
		if header {
			header = false
			if len(rec) > 0 && rec[0] == kg.ConciseHeader[0] {
				continue
			}
		}
		if len(rec) < 2 {
			return s, qerr.New(qerr.CodePipelineInputInvalid, "pair record has fewer than two ids",
				qerr.Field("file", name), qerr.Field("record", s.Queries+1))
		}
		s.Queries++
		s.Occurrences[rec[0]]++
		s.Occurrences[rec[1]]++
	}
	s.Entities = len(s.Occurrences)
	if s.Entities == 0 {
		return s, nil
	}

	counts := make([]int, 0, len(s.Occurrences))
	for _, n := range s.Occurrences {
		counts = append(counts, n)
	}
	sort.Ints(counts)
	s.Min, s.Max = counts[0], counts[len(counts)-1]

	total := 0
	freq := make(map[int]int)
	for _, n := range counts {
		total += n
		freq[n]++
	}
	s.Mean = float64(total) / float64(len(counts))
	mid := len(counts) / 2
	if len(counts)%2 == 1 {
		s.Median = float64(counts[mid])
	} else {
		s.Median = float64(counts[mid-1]+counts[mid]) / 2
	}

	for occ, n := range freq {
		s.Histogram = append(s.Histogram, Bucket{Occurrences: occ, Entities: n})
	}
	sort.Slice(s.Histogram, func(i, j int) bool { return s.Histogram[i].Occurrences < s.Histogram[j].Occurrences })
	return s, nil
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
)

// Render draws s as a boxed report with a horizontal bar per histogram
// bucket. width bounds the longest bar.
func Render(s Summary, width int) string {
	if width < 10 {
		width = 10
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(s.Name))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %d\n", labelStyle.Render("pairs:   "), s.Queries)
	fmt.Fprintf(&b, "%s %d\n", labelStyle.Render("entities:"), s.Entities)
	if s.Entities > 0 {
		fmt.Fprintf(&b, "%s %d min, %d max, %.2f mean, %.1f median\n",
			labelStyle.Render("per id:  "), s.Min, s.Max, s.Mean, s.Median)
	}

	peak := 0
	for _, bucket := range s.Histogram {
		peak = max(peak, bucket.Entities)
	}
	keyWidth := len(fmt.Sprint(s.Max))
	for _, bucket := range s.Histogram {
		n := bucket.Entities * width / peak
		if n == 0 {
			n = 1
		}
		fmt.Fprintf(&b, "\n%*d | %s %d", keyWidth, bucket.Occurrences, barStyle.Render(strings.Repeat("█", n)), bucket.Entities)
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}
