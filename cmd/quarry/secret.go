// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quarry-kg/quarry/internal/secrets"
	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

// secretStoreFactory opens the keyring. Tests replace it.
var secretStoreFactory = func() secrets.Store {
	return secrets.NewKeyringStore()
}

// newSecretCmd builds the secret command group. refs yields the keyring
// references found in the loaded config.
func newSecretCmd(refs func() []secrets.Reference) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage API keys kept in the OS keyring",
		Long: "API keys for the linker and the embedding client can live in the operating system " +
			"keyring instead of the config file. Store one with 'secret set <name>' and write " +
			"keyring://" + secrets.ServiceName + "/<name> as the config value.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <name>",
		Short: "Store a secret read from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := readSecretValue(cmd.InOrStdin())
			if err != nil {
				return err
			}
			name := args[0]
			if err := secretStoreFactory().Store(secrets.ServiceName, name, value); err != nil {
				return qerr.Errorf(qerr.CodeSecretStoreFailure, "storing secret %q: %w", name, err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stored secret: %s (%s)\n", name, keyringURI(name))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored secrets and the config keys that use them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := secretStoreFactory().List(secrets.ServiceName)
			if err != nil {
				return qerr.Errorf(qerr.CodeSecretListFailure, "listing secrets: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(names) == 0 {
				_, _ = fmt.Fprintln(out, "No secrets stored.")
				return nil
			}
			usedBy := configKeysByName(refs())
			slices.Sort(names)
			for _, name := range names {
				if keys := usedBy[name]; len(keys) > 0 {
					_, _ = fmt.Fprintf(out, "%s (used by %s)\n", name, strings.Join(keys, ", "))
					continue
				}
				_, _ = fmt.Fprintln(out, name)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Verify that every keyring reference in the config resolves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSecretCheck(cmd.OutOrStdout(), refs())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a secret by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			err := secretStoreFactory().Delete(secrets.ServiceName, name)
			switch {
			case qerr.HasCode(err, qerr.CodeSecretNotFound):
				return qerr.Errorf(qerr.CodeSecretNotFound, "secret %q not found", name)
			case err != nil:
				return qerr.Errorf(qerr.CodeSecretDeleteFailure, "deleting secret %q: %w", name, err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted secret: %s\n", name)
			return nil
		},
	})

	return cmd
}

func keyringURI(name string) string {
	return "keyring://" + secrets.ServiceName + "/" + name
}

// readSecretValue reads the whole of r without its trailing newline.
func readSecretValue(r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", qerr.Errorf(qerr.CodeSecretInputInvalid, "reading secret value: %w", err)
	}
	value := strings.TrimRight(string(raw), "\r\n")
	if value == "" {
		return "", qerr.New(qerr.CodeSecretInputInvalid, "secret value is empty")
	}
	return value, nil
}

// configKeysByName groups references to this service by secret name.
func configKeysByName(refs []secrets.Reference) map[string][]string {
	byName := make(map[string][]string)
	for _, ref := range refs {
		if ref.Service == secrets.ServiceName {
			byName[ref.Key] = append(byName[ref.Key], ref.ConfigKey)
		}
	}
	return byName
}

func runSecretCheck(out io.Writer, refs []secrets.Reference) error {
	if len(refs) == 0 {
		_, _ = fmt.Fprintln(out, "No keyring references in config.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "CONFIG KEY\tSECRET\tSTATUS")
	var failed []string
	for _, ref := range refs {
		status := "ok"
		if ref.Err != nil {
			status = "unresolved"
			failed = append(failed, ref.ConfigKey)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s/%s\t%s\n", ref.ConfigKey, ref.Service, ref.Key, status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(failed) > 0 {
		return qerr.New(qerr.CodeSecretResolveFailure, "unresolved keyring references",
			qerr.Field("config_keys", failed))
	}
	return nil
}
