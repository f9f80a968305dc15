// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quarry-kg/quarry/internal/factory"
	"github.com/quarry-kg/quarry/internal/linker"
)

func newFactoryCmd(v *viper.Viper) *cobra.Command {
	var input, output string
	cmd := &cobra.Command{
		Use:   "factory",
		Short: "Build candidate entity pairs from a query file",
		Long: "Link entity mentions in every id:text line of the input, resolve them to ids and " +
			"append every co-mentioned pair to the output CSV. An existing output is resumed " +
			"after its last query id.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := wire(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			l, err := linker.New(a.cfg.LinkerConfig())
			if err != nil {
				return err
			}
			f := factory.Factory{
				Linker:   l,
				Mentions: a.resolver,
				Logger:   a.logger.With("component", "factory"),
			}
			stats, err := f.RunFiles(cmd.Context(), input, output)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"%d lines, %d resumed, %d malformed, %d unlinked, %d sparse, %d queries, %d pairs\n",
				stats.Lines, stats.Resumed, stats.Malformed, stats.Unlinked, stats.Sparse, stats.Queries, stats.Pairs)
			return err
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "query file with one id:text line per query")
	cmd.Flags().StringVar(&output, "output", "", "candidate pair CSV to create or resume")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
