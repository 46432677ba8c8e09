// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package store

import (
	"cmp"
	"embed"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	// Register pgx/v5 database driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/samber/oops"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationFile is one embedded up migration.
type migrationFile struct {
	version uint
	name    string // NNNNNN_name, without the .up.sql suffix
}

// catalog parses the embedded migration names once; the FS is fixed at build time.
var catalog = sync.OnceValues(loadCatalog)

// migrateIface is the part of *migrate.Migrate used by Migrator.
type migrateIface interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Close() (source error, database error)
}

// Migrator wraps golang-migrate for database schema management.
type Migrator struct {
	m migrateIface
}

// NewMigrator creates a Migrator for the embedded schema.
// postgres:// and postgresql:// URLs are rewritten to the pgx5:// scheme
// expected by the golang-migrate pgx/v5 driver.
func NewMigrator(databaseURL string) (*Migrator, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, oops.Code("MIGRATION_SOURCE_FAILED").With("operation", "create migration source").Wrap(err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL(databaseURL))
	if err != nil {
		_ = source.Close() //nolint:errcheck // cleanup for embedded FS; init error takes precedence
		return nil, oops.Code("MIGRATION_INIT_FAILED").With("operation", "initialize migrator").Wrap(err)
	}

	return &Migrator{m: m}, nil
}

func migrateURL(databaseURL string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if rest, found := strings.CutPrefix(databaseURL, scheme); found {
			return "pgx5://" + rest
		}
	}
	return databaseURL
}

// Up applies all pending migrations.
func (m *Migrator) Up() error {
	if err := m.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_UP_FAILED").Wrap(err)
	}
	return nil
}

// Down rolls back every migration. All tables and their data are dropped.
func (m *Migrator) Down() error {
	if err := m.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_DOWN_FAILED").Wrap(err)
	}
	return nil
}

// Steps applies n migrations. Positive n migrates up, negative n migrates down.
func (m *Migrator) Steps(n int) error {
	if err := m.m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_STEPS_FAILED").With("steps", n).Wrap(err)
	}
	return nil
}

// Version returns the current migration version and dirty state.
// A dirty state indicates a migration failed partway through and requires manual intervention.
// Returns version 0 with dirty=false if no migrations have been applied.
func (m *Migrator) Version() (version uint, dirty bool, err error) {
	version, dirty, err = m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, oops.Code("MIGRATION_VERSION_FAILED").Wrap(err)
	}
	return version, dirty, nil
}

// Force sets the migration version without running migrations, clearing
// the dirty flag. Use it only after repairing a failed migration by hand.
// A version of -1 marks the database as having no migrations applied.
func (m *Migrator) Force(version int) error {
	if version < database.NilVersion {
		return oops.Code("INVALID_VERSION").Errorf("version must be >= %d, got %d", database.NilVersion, version)
	}
	if err := m.m.Force(version); err != nil {
		return oops.Code("MIGRATION_FORCE_FAILED").With("version", version).Wrap(err)
	}
	return nil
}

// Close releases resources.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	if srcErr != nil && dbErr != nil {
		return oops.Code("MIGRATION_CLOSE_FAILED").
			With("component", "both").
			Errorf("source: %v; database: %v", srcErr, dbErr)
	}
	if srcErr != nil {
		return oops.Code("MIGRATION_CLOSE_FAILED").With("component", "source").Wrap(srcErr)
	}
	if dbErr != nil {
		return oops.Code("MIGRATION_CLOSE_FAILED").With("component", "database").Wrap(dbErr)
	}
	return nil
}

// allMigrationVersions returns the embedded migration versions in ascending
// order. Callers own the returned slice.
func allMigrationVersions() ([]uint, error) {
	files, err := catalog()
	if err != nil {
		return nil, err
	}
	versions := make([]uint, len(files))
	for i, f := range files {
		versions[i] = f.version
	}
	return versions, nil
}

// loadCatalog reads the up migrations from the embedded directory.
// Files that don't match NNNNNN_name.up.sql are logged and skipped.
func loadCatalog() ([]migrationFile, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, oops.Code("MIGRATION_LIST_FAILED").With("operation", "read migrations dir").Wrap(err)
	}

	var files []migrationFile
	for _, entry := range entries {
		name, ok := strings.CutSuffix(entry.Name(), ".up.sql")
		if !ok {
			continue
		}
		prefix, _, found := strings.Cut(name, "_")
		version, err := strconv.ParseUint(prefix, 10, 64)
		if !found || len(prefix) != 6 || err != nil {
			slog.Warn("migration file name doesn't match expected format, skipping",
				"filename", entry.Name(),
				"expected_format", "NNNNNN_name.up.sql")
			continue
		}
		files = append(files, migrationFile{version: uint(version), name: name})
	}

	slices.SortFunc(files, func(a, b migrationFile) int { return cmp.Compare(a.version, b.version) })
	return files, nil
}

// MigrationName returns the NNNNNN_name of a migration, e.g. "000001_users".
// An unknown version returns ("", nil).
func MigrationName(version uint) (string, error) {
	files, err := catalog()
	if err != nil {
		return "", oops.With("operation", "look up migration name").Wrap(err)
	}
	for _, f := range files {
		if f.version == version {
			return f.name, nil
		}
	}
	return "", nil
}

// partition splits the embedded versions into those at or below current
// and those above it.
func partition(current uint) (applied, pending []uint, err error) {
	versions, err := allMigrationVersions()
	if err != nil {
		return nil, nil, err
	}
	for _, v := range versions {
		if v <= current {
			applied = append(applied, v)
		} else {
			pending = append(pending, v)
		}
	}
	return applied, pending, nil
}

// PendingMigrations returns the versions Up would apply, in ascending order.
func (m *Migrator) PendingMigrations() ([]uint, error) {
	current, _, err := m.Version()
	if err != nil {
		return nil, oops.With("operation", "get pending migrations").Wrap(err)
	}
	_, pending, err := partition(current)
	if err != nil {
		return nil, oops.With("operation", "get pending migrations").Wrap(err)
	}
	return pending, nil
}

// AppliedMigrations returns the versions already applied, in ascending order.
func (m *Migrator) AppliedMigrations() ([]uint, error) {
	current, _, err := m.Version()
	if err != nil {
		return nil, oops.With("operation", "get applied migrations").Wrap(err)
	}
	applied, _, err := partition(current)
	if err != nil {
		return nil, oops.With("operation", "get applied migrations").Wrap(err)
	}
	return applied, nil
}

// Status summarizes the schema state for the migrate status command.
type Status struct {
	Version uint
	Dirty   bool
	Applied []uint
	Pending []uint
}

// Status reports the current version together with applied and pending migrations.
func (m *Migrator) Status() (*Status, error) {
	version, dirty, err := m.Version()
	if err != nil {
		return nil, err
	}
	applied, pending, err := partition(version)
	if err != nil {
		return nil, err
	}
	return &Status{Version: version, Dirty: dirty, Applied: applied, Pending: pending}, nil
}
