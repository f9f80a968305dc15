// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quarry-kg/quarry/internal/embed"
	"github.com/quarry-kg/quarry/internal/pathfinder"
	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

func newPathCmd(v *viper.Viper) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "path <source-id> <target-id>",
		Short: "Search for a chain of relations connecting two entities",
		Long: "Search the graph from both entities at once, expanding the cheaper frontier first. " +
			"Path cost weighs the mean embedding distance of the path to the goal (alpha), the " +
			"number of hops (beta) and the distance of the path head to the goal (gamma). Alpha " +
			"and gamma need an embedder; with both at 0 the search ranks by length alone.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "turtle" {
				return qerr.New(qerr.CodeCLIInputInvalid, "--format must be text or turtle", qerr.Field("format", format))
			}
			a, err := wire(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			source, target := args[0], args[1]
			compiler := a.cfg.Compiler()
			for _, id := range args {
				if !compiler.Entities.ValidID(id) {
					return qerr.New(qerr.CodeCLIInputInvalid, "not an entity id", qerr.FieldEntity(id))
				}
			}

			cfg := a.cfg.PathConfig()
			embedder, err := embed.New(a.cfg.EmbedConfig())
			if err != nil {
				a.logger.Debug("no embedder", "error", err)
			}
			distances := embed.NewDistances(a.cache, embedder)
			if cfg.Weights.Semantic() && !distances.Available() {
				return qerr.New(qerr.CodeEmbedUnavailable,
					"alpha and gamma need an embedder: set embed.api_key or pass --alpha 0 --gamma 0",
					qerr.Field("alpha", cfg.Weights.Alpha), qerr.Field("gamma", cfg.Weights.Gamma))
			}

			finder, err := pathfinder.New(a.resolver, distances, cfg)
			if err != nil {
				return err
			}
			finder.WithLogger(a.logger.With("component", "pathfinder"))

			if _, err := a.resolver.ResolveLabels(cmd.Context(), []string{source, target}); err != nil {
				return err
			}
			res, err := finder.Find(cmd.Context(), source, target)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == "turtle" {
				return res.WriteTurtle(out, a.resolver, compiler.Entities, compiler.Relations)
			}
			if !res.Found {
				_, err = fmt.Fprintf(out, "No path between %s and %s after visiting %d entities.\n", source, target, res.Visited)
				return err
			}
			_, err = fmt.Fprintf(out, "%s\nlength %d, %d entities visited\n", res.Text(a.resolver), len(res.Steps), res.Visited)
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or turtle")
	cmd.Flags().Float64("alpha", 0, "weight of the mean distance to the goal (overrides path.alpha)")
	cmd.Flags().Float64("beta", 0, "weight of the path length (overrides path.beta)")
	cmd.Flags().Float64("gamma", 0, "weight of the head's distance to the goal (overrides path.gamma)")
	cmd.Flags().Int("entity-limit", 0, "entities visited before giving up (overrides path.entity_limit)")
	_ = v.BindPFlag("path.alpha", cmd.Flags().Lookup("alpha"))
	_ = v.BindPFlag("path.beta", cmd.Flags().Lookup("beta"))
	_ = v.BindPFlag("path.gamma", cmd.Flags().Lookup("gamma"))
	_ = v.BindPFlag("path.entity_limit", cmd.Flags().Lookup("entity-limit"))
	return cmd
}
