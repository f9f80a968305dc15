// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newResolveCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve labels or mentions",
	}
	cmd.AddCommand(
		newResolveLabelsCmd(v),
		newResolveMentionCmd(v),
	)
	return cmd
}

func newResolveLabelsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "labels <id>...",
		Short: "Fetch and cache labels and descriptions of entity ids",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := wire(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			stats, err := a.resolver.ResolveLabels(cmd.Context(), args)
			if err != nil {
				return err
			}
			a.logger.Debug("labels resolved", "missing", stats.Missing, "queries", stats.Queries, "resolved", stats.Resolved)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tLABEL\tDESCRIPTION")
			for _, id := range args {
				e := a.resolver.CachedEntity(id)
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", id, e.Label, e.Description)
			}
			return tw.Flush()
		},
	}
}

func newResolveMentionCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "mention <text>...",
		Short: "Map surface text to an entity id",
		Long:  "Map surface text to an entity id. The words are joined with single spaces.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := wire(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			mention := strings.Join(args, " ")
			id, err := a.resolver.ResolveMention(cmd.Context(), mention)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if id == "" {
				_, err = fmt.Fprintf(out, "%q did not resolve\n", mention)
				return err
			}
			_, err = fmt.Fprintln(out, id)
			return err
		},
	}
}
