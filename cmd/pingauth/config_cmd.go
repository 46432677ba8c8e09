// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package main

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pinghq/ping-auth/internal/config"
)

// NewConfigCmd creates the config command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}
	cmd.AddCommand(newConfigSchemaCmd())
	cmd.AddCommand(newConfigValidateCmd())
	cmd.AddCommand(newConfigShowCmd())
	return cmd
}

func newConfigSchemaCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for configuration files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			if output == "" {
				cmd.Println(string(schema))
				return nil
			}
			if err := os.MkdirAll(filepath.Dir(output), 0o750); err != nil {
				return oops.Code("SCHEMA_WRITE_FAILED").With("path", output).Wrap(err)
			}
			if err := os.WriteFile(output, schema, 0o600); err != nil {
				return oops.Code("SCHEMA_WRITE_FAILED").With("path", output).Wrap(err)
			}
			cmd.Printf("Generated %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the schema to this file instead of stdout")
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [FILE]",
		Short: "Validate a configuration file",
		Long: `Validate checks FILE (or --config) against the schema, then loads it
with the environment applied and runs the semantic checks serve performs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configFile
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := config.Load(path, nil); err != nil {
				return err
			}
			if path == "" {
				cmd.Println("Configuration is valid (defaults and environment)")
			} else {
				cmd.Printf("%s is valid\n", path)
			}
			return nil
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadUnvalidated(configFile, nil)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg.Redacted())
			if err != nil {
				return oops.Code("CONFIG_ENCODE_FAILED").Wrap(err)
			}
			cmd.Print(string(out))
			return nil
		},
	}
}
