// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package main

import (
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/pinghq/ping-auth/internal/config"
	"github.com/pinghq/ping-auth/internal/store"
)

// Migrator wraps the store.Migrator methods used by the migrate commands.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Status() (*store.Status, error)
	Close() error
}

var _ Migrator = (*store.Migrator)(nil)

// migratorFactory is replaced in tests.
var migratorFactory = func(databaseURL string) (Migrator, error) {
	return store.NewMigrator(databaseURL)
}

// NewMigrateCmd creates the migrate command group.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long:  `Apply, roll back or inspect the embedded PostgreSQL schema migrations.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m Migrator) error {
				cmd.Println("Running migrations...")
				if err := m.Up(); err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
				}
				cmd.Println("Migrations completed successfully")
				return nil
			})
		},
	}
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL URL (overrides database.url)")

	cmd.AddCommand(newMigrateUpCmd())
	cmd.AddCommand(newMigrateDownCmd())
	cmd.AddCommand(newMigrateStatusCmd())
	cmd.AddCommand(newMigrateForceCmd())

	return cmd
}

func newMigrateUpCmd() *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m Migrator) error {
				var err error
				if steps > 0 {
					err = m.Steps(steps)
				} else {
					err = m.Up()
				}
				if err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "migrate up").Wrap(err)
				}
				cmd.Println("Migrations completed successfully")
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 0, "apply at most this many migrations (0 = all)")
	return cmd
}

func newMigrateDownCmd() *cobra.Command {
	var steps int
	var all bool
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Long: `Roll back the most recent migration. Use --steps to roll back more,
or --all to drop every table.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all && steps > 0 {
				return oops.Code("CONFIG_INVALID").Errorf("--all and --steps are mutually exclusive")
			}
			return withMigrator(cmd, func(m Migrator) error {
				var err error
				switch {
				case all:
					err = m.Down()
				case steps > 0:
					err = m.Steps(-steps)
				default:
					err = m.Steps(-1)
				}
				if err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "migrate down").Wrap(err)
				}
				cmd.Println("Rollback completed successfully")
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 0, "number of migrations to roll back")
	cmd.Flags().BoolVar(&all, "all", false, "roll back every migration")
	return cmd
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m Migrator) error {
				status, err := m.Status()
				if err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "read status").Wrap(err)
				}
				cmd.Print(formatStatus(status))
				return nil
			})
		},
	}
}

func newMigrateForceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations",
		Long: `Force marks VERSION as applied and clears the dirty flag. Use it
after repairing a failed migration by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil || version < -1 {
				return oops.Code("CONFIG_INVALID").With("version", args[0]).Errorf("version must be an integer >= -1")
			}
			return withMigrator(cmd, func(m Migrator) error {
				if err := m.Force(version); err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "force version").Wrap(err)
				}
				cmd.Printf("Schema version forced to %d\n", version)
				return nil
			})
		},
	}
}

// withMigrator resolves the database URL, opens a migrator and runs fn.
func withMigrator(cmd *cobra.Command, fn func(Migrator) error) error {
	cfg, err := config.LoadUnvalidated(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database URL is required (database.url, PINGAUTH_DATABASE__URL or DATABASE_URL)")
	}

	m, err := migratorFactory(cfg.Database.URL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			cmd.PrintErrf("warning: failed to close migrator: %v\n", closeErr)
		}
	}()

	return fn(m)
}

func formatStatus(s *store.Status) string {
	var b strings.Builder
	state := "clean"
	if s.Dirty {
		state = "dirty"
	}
	b.WriteString("Schema version: ")
	b.WriteString(strconv.FormatUint(uint64(s.Version), 10))
	b.WriteString(" (" + state + ")\n")

	writeList := func(title string, versions []uint) {
		b.WriteString(title + ":\n")
		if len(versions) == 0 {
			b.WriteString("  (none)\n")
			return
		}
		for _, v := range versions {
			name, err := store.MigrationName(v)
			if err != nil || name == "" {
				name = strconv.FormatUint(uint64(v), 10) + " (unknown)"
			}
			b.WriteString("  " + name + "\n")
		}
	}
	writeList("Applied", s.Applied)
	writeList("Pending", s.Pending)
	return b.String()
}
