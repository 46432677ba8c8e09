// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/pinghq/ping-auth/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the pingauth CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pingauth",
		Short: "pingauth - accounts and profiles for Ping",
		Long: `pingauth serves the Ping account API: email and password
registration, sessions backed by rotating refresh tokens, password resets
and user profiles.`,
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if configFile == "" {
				configFile = xdg.DefaultConfigFile()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML, default $XDG_CONFIG_HOME/pingauth/config.yaml when present)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewConfigCmd())
	cmd.AddCommand(NewSeedCmd())

	return cmd
}
