// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/quarry-kg/quarry/internal/config"
	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

const masked = "********"

func newConfigCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML with secrets masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(maskSecrets(*cfg)); err != nil {
				return qerr.Errorf(qerr.CodeCLIRequestFailure, "encoding config: %w", err)
			}
			return enc.Close()
		},
	})
	return cmd
}

// maskSecrets returns cfg with every credential replaced by a placeholder.
func maskSecrets(cfg config.Config) config.Config {
	for _, s := range []*string{&cfg.Linker.APIKey, &cfg.Embed.APIKey, &cfg.Storage.Redis.Password} {
		if *s != "" {
			*s = masked
		}
	}
	return cfg
}
