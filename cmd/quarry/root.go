// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package main

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quarry-kg/quarry/internal/config"
	"github.com/quarry-kg/quarry/internal/secrets"
	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

// NewRootCmd creates the quarry command tree. Each tree owns its own viper
// instance.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	var refs []secrets.Reference

	root := &cobra.Command{
		Use:   "quarry",
		Short: "Quarry builds entity-pair datasets from search queries",
		Long: "Quarry links entity mentions in free-text queries to knowledge graph ids, " +
			"expands their neighborhoods through a rate-limited SPARQL endpoint and keeps " +
			"every lookup in a persistent cache.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			refs, err = initViper(cmd, v)
			return err
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("data-dir", "", "cache directory (overrides storage.dir)")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(v),
		newFactoryCmd(v),
		newRefineCmd(v),
		newResolveCmd(v),
		newLookupCmd(v),
		newPathCmd(v),
		newStatsCmd(),
		newConfigCmd(v),
		newSecretCmd(func() []secrets.Reference { return refs }),
		newVersionCmd(),
	)

	return root
}

// initViper applies defaults, .env, environment, config file and flags to v
// so the usual precedence (flag > env > file > defaults) holds, then swaps
// keyring URIs for their secrets.
func initViper(cmd *cobra.Command, v *viper.Viper) ([]secrets.Reference, error) {
	config.LoadDotEnv()
	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, qerr.Errorf(qerr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// SetConfigType is omitted so viper does not try the bare name,
		// which would match a ./quarry binary.
		v.SetConfigName("quarry")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/quarry")
		v.AddConfigPath("/etc/quarry")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, qerr.Errorf(qerr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
			if path := config.BootstrapConfig(); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return nil, qerr.Errorf(qerr.CodeConfigLoadReadFailure, "reading bootstrapped config: %w", err)
				}
			}
		}
	}
	config.WarnInsecurePermissions(v.ConfigFileUsed())

	flags := cmd.Root().PersistentFlags()
	if err := v.BindPFlag("storage.dir", flags.Lookup("data-dir")); err != nil {
		return nil, qerr.Errorf(qerr.CodeCLISetupFailure, "binding data-dir flag: %w", err)
	}
	if err := v.BindPFlag("verbose", flags.Lookup("verbose")); err != nil {
		return nil, qerr.Errorf(qerr.CodeCLISetupFailure, "binding verbose flag: %w", err)
	}

	return secrets.ResolveViper(v, secretStoreFactory()), nil
}
