// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quarry-kg/quarry/internal/kg"
	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

func newLookupCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Explore the graph around an entity",
	}
	cmd.AddCommand(
		newLookupNeighborsCmd(v),
		newLookupOutgoingCmd(v),
	)
	return cmd
}

func newLookupNeighborsCmd(v *viper.Viper) *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "neighbors <id>",
		Short: "List the direct neighbors of an entity",
		Long: "List the direct neighbors of an entity. Without --depth a cached adjacency is " +
			"served as is and a miss is expanded from resolver.depth down to one hop. With " +
			"--depth one neighborhood query of that depth is always run.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := wire(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			id := args[0]
			var edges []kg.Edge
			if cmd.Flags().Changed("depth") {
				if maxDepth := a.cfg.Resolver.MaxDepth; depth < 1 || depth > maxDepth {
					return qerr.New(qerr.CodeCLIInputInvalid, fmt.Sprintf("--depth must be between 1 and %d", maxDepth),
						qerr.Field("depth", depth))
				}
				n, err := a.resolver.Expand(cmd.Context(), id, depth)
				if err != nil {
					return err
				}
				edges = n.Edges(id)
			} else {
				edges, err = a.resolver.Neighbors(cmd.Context(), id)
				if err != nil {
					return err
				}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "RELATION\tRELATION_LABEL\tNEIGHBOR\tNEIGHBOR_LABEL")
			for _, e := range edges {
				rel := a.resolver.Relation(e.Relation)
				neighbor := a.resolver.CachedEntity(e.Neighbor)
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Relation, rel.Label, e.Neighbor, neighbor.Label)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 0, "neighborhood depth to query (at most resolver.max_depth)")
	return cmd
}

func newLookupOutgoingCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "outgoing <id>",
		Short: "List entity ids one hop out from an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := wire(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ids, err := a.resolver.Outgoing(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, id := range ids {
				if _, err := fmt.Fprintln(out, id); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
