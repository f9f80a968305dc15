// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

// Package factory turns a file of free-text queries into candidate entity
// pairs. Each query is linked, its mentions are resolved to entity ids and
// every unordered id pair is written out with the query id.
package factory

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/quarry-kg/quarry/internal/kg"
	"github.com/quarry-kg/quarry/internal/linker"
	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

// MentionResolver maps surface text to an entity id; "" means no match.
type MentionResolver interface {
	ResolveMention(ctx context.Context, mention string) (string, error)
}

// Stats summarizes one factory run.
type Stats struct {
	Lines     int `json:"lines"`
	Resumed   int `json:"resumed"`
	Malformed int `json:"malformed"`
	Unlinked  int `json:"unlinked"`
	Sparse    int `json:"sparse"`
	Queries   int `json:"queries"`
	Pairs     int `json:"pairs"`
}

// Factory produces candidate pairs.
type Factory struct {
	Linker   linker.Linker
	Mentions MentionResolver
	Logger   *slog.Logger
}

// Query is one parsed input line.
type Query struct {
	ID   string
	Text string
}

// ParseLine splits "id:text". The id is the first field and the text the
// last, so colons inside the text drop the middle fields.
func ParseLine(line string) (Query, bool) {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Split(line, ":")
	if len(fields) < 2 {
		return Query{}, false
	}
	return Query{ID: strings.TrimSpace(fields[0]), Text: strings.TrimSpace(fields[len(fields)-1])}, true
}

// Run reads queries from in and appends pair records to out. Queries whose
// numeric id is at or below watermark were handled by an earlier run and
// are skipped. Pairs are flushed per query so an interrupted run can resume.
func (f Factory) Run(ctx context.Context, in io.Reader, out io.Writer, watermark int64) (Stats, error) {
	logger := f.logger()
	var stats Stats
	w := csv.NewWriter(out)

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Lines++
		raw := sc.Text()

		if !utf8.ValidString(raw) {
			stats.Malformed++
			logger.Warn("skipping line with invalid encoding", "line", stats.Lines)
			continue
		}
		q, ok := ParseLine(raw)
		if !ok {
			stats.Malformed++
			logger.Warn("skipping malformed query line", "line", stats.Lines)
			continue
		}
		id, err := strconv.ParseInt(q.ID, 10, 64)
		if err != nil {
			stats.Malformed++
			logger.Warn("skipping query with non-numeric id", "line", stats.Lines, "trec_id", q.ID)
			continue
		}
		if id <= watermark {
			stats.Resumed++
			continue
		}

		pairs, err := f.pairs(ctx, q, &stats, logger)
		if err != nil {
			return stats, err
		}
		if len(pairs) == 0 {
			continue
		}
		for _, p := range pairs {
			if err := w.Write(p.Concise()); err != nil {
				return stats, qerr.Errorf(qerr.CodePipelineIOFailure, "writing pair: %w", err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return stats, qerr.Errorf(qerr.CodePipelineIOFailure, "flushing pairs: %w", err)
		}
		stats.Queries++
		stats.Pairs += len(pairs)
	}
	if err := sc.Err(); err != nil {
		return stats, qerr.Errorf(qerr.CodePipelineIOFailure, "reading queries: %w", err)
	}
	return stats, nil
}

// pairs links and resolves one query. A nil result with nil error means the
// query was skipped.
func (f Factory) pairs(ctx context.Context, q Query, stats *Stats, logger *slog.Logger) ([]kg.CandidatePair, error) {
	mentions, err := f.Linker.Link(ctx, q.Text)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		stats.Unlinked++
		logger.Warn("linker failed, skipping query", "trec_id", q.ID, "error", err)
		return nil, nil
	}
	if len(mentions) < 2 {
		stats.Sparse++
		logger.Debug("fewer than two mentions", "trec_id", q.ID, "mentions", len(mentions))
		return nil, nil
	}

	var ids []string
	for _, m := range mentions {
		id, err := f.Mentions.ResolveMention(ctx, m)
		if err != nil {
			if qerr.IsInvalidInput(err) {
				continue
			}
			return nil, err
		}
		if id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) < 2 {
		stats.Sparse++
		logger.Debug("fewer than two resolved ids", "trec_id", q.ID, "ids", len(ids))
		return nil, nil
	}

	var out []kg.CandidatePair
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			out = append(out, kg.CandidatePair{IDA: ids[i], IDB: ids[j], SourceQueryID: q.ID})
		}
	}
	logger.Debug("query produced pairs", "trec_id", q.ID, "pairs", len(out))
	return out, nil
}

// Watermark returns the trec_id of the last record in a pair CSV, or 0 when
// the file holds only a header.
func Watermark(r io.Reader) (int64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(kg.ConciseHeader)
	last := ""
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, qerr.Errorf(qerr.CodePipelineInputInvalid, "reading existing output: %w", err)
		}
		if first {
			first = false
			if rec[0] == kg.ConciseHeader[0] {
				continue
			}
		}
		last = rec[2]
	}
	if last == "" {
		return 0, nil
	}
	wm, err := strconv.ParseInt(last, 10, 64)
	if err != nil {
		return 0, qerr.New(qerr.CodePipelineInputInvalid, "existing output ends with a non-numeric trec_id",
			qerr.Field("trec_id", last))
	}
	return wm, nil
}

// RunFiles runs the factory from inputPath into outputPath, resuming after
// the last query already present in the output.
func (f Factory) RunFiles(ctx context.Context, inputPath, outputPath string) (Stats, error) {
	in, err := os.Open(inputPath)
	if err != nil {
		return Stats{}, qerr.Wrap(err, qerr.CodePipelineIOFailure, "opening query file", qerr.Field("path", inputPath))
	}
	defer in.Close()

	var watermark int64
	existing, err := os.Open(outputPath)
	switch {
	case err == nil:
		watermark, err = Watermark(existing)
		_ = existing.Close()
		if err != nil {
			return Stats{}, err
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Stats{}, qerr.Wrap(err, qerr.CodePipelineIOFailure, "opening output file", qerr.Field("path", outputPath))
	}

	out, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return Stats{}, qerr.Wrap(err, qerr.CodePipelineIOFailure, "opening output file", qerr.Field("path", outputPath))
	}
	defer out.Close()

	info, err := out.Stat()
	if err != nil {
		return Stats{}, qerr.Wrap(err, qerr.CodePipelineIOFailure, "stat output file")
	}
	if info.Size() == 0 {
		w := csv.NewWriter(out)
		_ = w.Write(kg.ConciseHeader)
		w.Flush()
		if err := w.Error(); err != nil {
			return Stats{}, qerr.Errorf(qerr.CodePipelineIOFailure, "writing header: %w", err)
		}
	}
	if watermark > 0 {
		f.logger().Info("resuming after last processed query", "trec_id", watermark)
	}
	return f.Run(ctx, in, out, watermark)
}

func (f Factory) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}
