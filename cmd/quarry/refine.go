// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quarry-kg/quarry/internal/refine"
	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

func newRefineCmd(v *viper.Viper) *cobra.Command {
	var input, concise, verbose string
	cmd := &cobra.Command{
		Use:   "refine",
		Short: "Filter candidate pairs by label and description quality",
		Long: "Fetch labels and descriptions for every id in a candidate CSV and keep the pairs " +
			"that pass every quality rule. Accepted pairs are written twice: a concise CSV and a " +
			"verbose CSV with labels and descriptions.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if concise == "" {
				concise = siblingPath(input, "refined_concise")
			}
			if verbose == "" {
				verbose = siblingPath(input, "refined_verbose")
			}

			a, err := wire(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			in, err := os.Open(input)
			if err != nil {
				return qerr.Errorf(qerr.CodePipelineIOFailure, "opening candidates: %w", err)
			}
			defer func() { _ = in.Close() }()
			conciseOut, err := os.Create(concise)
			if err != nil {
				return qerr.Errorf(qerr.CodePipelineIOFailure, "creating concise output: %w", err)
			}
			defer func() { _ = conciseOut.Close() }()
			verboseOut, err := os.Create(verbose)
			if err != nil {
				return qerr.Errorf(qerr.CodePipelineIOFailure, "creating verbose output: %w", err)
			}
			defer func() { _ = verboseOut.Close() }()

			runner := refine.Runner{
				Refiner: refine.New(a.cfg.Refine.Marker),
				Labels:  a.resolver,
				Logger:  a.logger.With("component", "refine"),
			}
			stats, err := runner.Run(cmd.Context(), in, conciseOut, verboseOut)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%d read, %d accepted\n", stats.Read, stats.Accepted)
			reasons := make([]string, 0, len(stats.Rejected))
			for r := range stats.Rejected {
				reasons = append(reasons, string(r))
			}
			sort.Strings(reasons)
			for _, r := range reasons {
				_, _ = fmt.Fprintf(out, "  rejected %s: %d\n", r, stats.Rejected[refine.Reason(r)])
			}
			_, err = fmt.Fprintf(out, "wrote %s and %s\n", concise, verbose)
			return err
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "candidate pair CSV")
	cmd.Flags().StringVar(&concise, "concise", "", "concise output CSV (default <input>.refined_concise.csv)")
	cmd.Flags().StringVar(&verbose, "verbose-out", "", "verbose output CSV (default <input>.refined_verbose.csv)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// siblingPath returns input with its extension replaced by "."+suffix+".csv".
func siblingPath(input, suffix string) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + "." + suffix + ".csv"
}
