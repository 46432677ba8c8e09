// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pinghq/ping-auth/internal/auth"
	authpg "github.com/pinghq/ping-auth/internal/auth/postgres"
	"github.com/pinghq/ping-auth/internal/config"
	"github.com/pinghq/ping-auth/internal/profile"
	profilepg "github.com/pinghq/ping-auth/internal/profile/postgres"
	"github.com/pinghq/ping-auth/internal/store"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

// seedFile is the YAML document accepted by the seed command.
type seedFile struct {
	Users []seedUser `yaml:"users"`
}

type seedUser struct {
	FullName string       `yaml:"full_name"`
	Email    string       `yaml:"email"`
	Password string       `yaml:"password"`
	Verified bool         `yaml:"verified"`
	Profile  *seedProfile `yaml:"profile"`
}

type seedProfile struct {
	PhoneNumber string `yaml:"phone_number"`
	DateOfBirth string `yaml:"date_of_birth"`
	Bio         string `yaml:"bio"`
	Avatar      string `yaml:"avatar"`
}

// seedResult counts what a seed run did.
type seedResult struct {
	Created  int
	Skipped  int
	Profiles int
}

// seeder creates accounts from a seed file. Existing emails are skipped so
// the command can be run repeatedly.
type seeder struct {
	users    auth.UserRepository
	profiles profile.Repository
	hasher   auth.PasswordHasher
	now      func() time.Time
	logger   *slog.Logger
}

func parseSeedFile(r io.Reader) (*seedFile, error) {
	var doc seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, oops.Code("SEED_INVALID").Wrapf(err, "parse seed file")
	}
	return &doc, nil
}

func (s *seeder) run(ctx context.Context, doc *seedFile) (seedResult, error) {
	var res seedResult
	for i := range doc.Users {
		created, withProfile, err := s.seedUser(ctx, &doc.Users[i])
		if err != nil {
			return res, oops.With("index", i, "email", doc.Users[i].Email).Wrap(err)
		}
		if !created {
			res.Skipped++
			continue
		}
		res.Created++
		if withProfile {
			res.Profiles++
		}
	}
	return res, nil
}

func (s *seeder) seedUser(ctx context.Context, in *seedUser) (created, withProfile bool, err error) {
	if err := auth.ValidatePassword(in.Password); err != nil {
		return false, false, err
	}

	// Validate the profile before creating the user so a bad entry leaves
	// nothing behind.
	var dob time.Time
	if in.Profile != nil {
		dob, err = profile.ParseDate(in.Profile.DateOfBirth)
		if err != nil {
			return false, false, err
		}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return false, false, oops.Code("SEED_FAILED").With("operation", "hash password").Wrap(err)
	}
	user, err := auth.NewUser(in.FullName, in.Email, hash)
	if err != nil {
		return false, false, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, auth.ErrAlreadyExists) {
			s.logger.Info("seed user already exists, skipping", "email", user.Email)
			return false, false, nil
		}
		return false, false, oops.Code("SEED_FAILED").With("operation", "create user").Wrap(err)
	}

	if in.Verified {
		if err := s.users.MarkVerified(ctx, user.ID); err != nil {
			return false, false, oops.Code("SEED_FAILED").With("operation", "mark verified").Wrap(err)
		}
	}

	if in.Profile == nil {
		return true, false, nil
	}

	now := s.now()
	p, err := profile.NewProfile(user.ID, in.Profile.PhoneNumber, dob, now)
	if err != nil {
		return false, false, err
	}
	changes := profile.Changes{}
	if in.Profile.Bio != "" {
		changes.Bio = &in.Profile.Bio
	}
	if in.Profile.Avatar != "" {
		changes.Avatar = &in.Profile.Avatar
	}
	if err := p.Apply(changes, now); err != nil {
		return false, false, err
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		return false, false, oops.Code("SEED_FAILED").With("operation", "create profile").Wrap(err)
	}
	return true, true, nil
}

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	timeout time.Duration
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed FILE",
		Short: "Create accounts from a YAML seed file",
		Long: `Creates the users (and optional profiles) listed in FILE.
This command is idempotent - users whose email already exists are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, args[0], cfg)
		},
	}

	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")
	cmd.Flags().String("database-url", "", "PostgreSQL URL (overrides database.url)")

	return cmd
}

func runSeed(cmd *cobra.Command, path string, cfg *seedConfig) error {
	f, err := os.Open(path) //nolint:gosec // operator supplied path
	if err != nil {
		return oops.Code("SEED_INVALID").With("path", path).Wrap(err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	doc, err := parseSeedFile(f)
	if err != nil {
		return err
	}

	appCfg, err := config.LoadUnvalidated(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if appCfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database URL is required (database.url, PINGAUTH_DATABASE__URL or DATABASE_URL)")
	}

	// Use cmd.Context() to respect SIGINT/SIGTERM signals
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	pool, err := store.Connect(ctx, store.PoolConfig{URL: appCfg.Database.URL}, slog.Default())
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	s := &seeder{
		users:    authpg.NewUserRepository(pool),
		profiles: profilepg.NewProfileRepository(pool),
		hasher:   auth.NewArgon2idHasher(),
		now:      time.Now,
		logger:   slog.Default(),
	}
	res, err := s.run(ctx, doc)
	if err != nil {
		return err
	}

	cmd.Printf("Seeding complete: %d created (%d with profiles), %d skipped\n", res.Created, res.Profiles, res.Skipped)
	return nil
}
