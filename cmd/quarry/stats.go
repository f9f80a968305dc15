// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quarry-kg/quarry/internal/stats"
	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

func newStatsCmd() *cobra.Command {
	var width int
	cmd := &cobra.Command{
		Use:   "stats <file>...",
		Short: "Summarize entity occurrences in pair CSVs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, path := range args {
				s, err := summarizeFile(path)
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintln(out, stats.Render(s, width)); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 40, "widest histogram bar in cells")
	return cmd
}

func summarizeFile(path string) (stats.Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return stats.Summary{}, qerr.Errorf(qerr.CodePipelineIOFailure, "opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return stats.Summarize(filepath.Base(path), f)
}
