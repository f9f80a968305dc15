// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package refine

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"

	"github.com/quarry-kg/quarry/internal/kg"
	"github.com/quarry-kg/quarry/internal/resolver"
	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

// LabelSource prefetches and serves labels and descriptions.
type LabelSource interface {
	ResolveLabels(ctx context.Context, ids []string) (resolver.BatchStats, error)
	CachedEntity(id string) kg.Entity
}

// RunStats summarizes one refinement run.
type RunStats struct {
	Read     int            `json:"read"`
	Accepted int            `json:"accepted"`
	Rejected map[Reason]int `json:"rejected"`
	Labels   resolver.BatchStats
}

// Runner refines a candidate-pair CSV.
type Runner struct {
	Refiner Refiner
	Labels  LabelSource
	Logger  *slog.Logger
}

// Run reads candidate records (wikidata_id_a, wikidata_id_b, trec_id) from
// in, prefetches labels for every id in one batch pass, and writes accepted
// pairs to concise and verbose, each with a header.
func (r Runner) Run(ctx context.Context, in io.Reader, concise, verbose io.Writer) (RunStats, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	stats := RunStats{Rejected: make(map[Reason]int)}

	records, err := readCandidates(in)
	if err != nil {
		return stats, err
	}
	stats.Read = len(records)

	ids := make([]string, 0, 2*len(records))
	for _, rec := range records {
		ids = append(ids, rec[0], rec[1])
	}
	logger.Info("fetching labels and descriptions", "entities", len(ids))
	stats.Labels, err = r.Labels.ResolveLabels(ctx, ids)
	if err != nil {
		return stats, err
	}

	cw := csv.NewWriter(concise)
	vw := csv.NewWriter(verbose)
	if err := cw.Write(kg.ConciseHeader); err != nil {
		return stats, qerr.Errorf(qerr.CodePipelineIOFailure, "writing concise header: %w", err)
	}
	if err := vw.Write(kg.VerboseHeader); err != nil {
		return stats, qerr.Errorf(qerr.CodePipelineIOFailure, "writing verbose header: %w", err)
	}

	for _, rec := range records {
		a := r.Labels.CachedEntity(rec[0])
		b := r.Labels.CachedEntity(rec[1])
		pair := kg.CandidatePair{
			IDA: rec[0], IDB: rec[1], SourceQueryID: rec[2],
			LabelA: a.Label, LabelB: b.Label,
			DescriptionA: a.Description, DescriptionB: b.Description,
		}
		refined, reason, ok := r.Refiner.Refine(pair)
		if !ok {
			stats.Rejected[reason]++
			logger.Debug("dropping pair", "a", pair.IDA, "b", pair.IDB, "trec_id", pair.SourceQueryID, "reason", reason)
			continue
		}
		stats.Accepted++
		if err := cw.Write(refined.Concise()); err != nil {
			return stats, qerr.Errorf(qerr.CodePipelineIOFailure, "writing concise record: %w", err)
		}
		if err := vw.Write(refined.Verbose()); err != nil {
			return stats, qerr.Errorf(qerr.CodePipelineIOFailure, "writing verbose record: %w", err)
		}
	}

	cw.Flush()
	vw.Flush()
	if err := errors.Join(cw.Error(), vw.Error()); err != nil {
		return stats, qerr.Errorf(qerr.CodePipelineIOFailure, "flushing refined output: %w", err)
	}
	return stats, nil
}

// readCandidates reads every record after the header.
func readCandidates(in io.Reader) ([][]string, error) {
	cr := csv.NewReader(in)
	cr.FieldsPerRecord = len(kg.ConciseHeader)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, qerr.Errorf(qerr.CodePipelineInputInvalid, "reading candidate header: %w", err)
	}
	if header[0] != kg.ConciseHeader[0] {
		return nil, qerr.New(qerr.CodePipelineInputInvalid, "candidate file has no header row",
			qerr.Field("first_field", header[0]))
	}

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, qerr.Errorf(qerr.CodePipelineInputInvalid, "reading candidate record: %w", err)
		}
		records = append(records, rec)
	}
}
