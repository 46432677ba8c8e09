// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package profile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/pinghq/ping-auth/internal/auth"
)

// UserReader loads the owner of a profile. auth.UserRepository satisfies it.
type UserReader interface {
	GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error)
}

// Service provides profile operations.
type Service struct {
	profiles Repository
	users    UserReader
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a profile Service.
func NewService(profiles Repository, users UserReader, opts ...Option) (*Service, error) {
	if profiles == nil {
		return nil, oops.Code("PROFILE_INVALID_CONFIG").Errorf("profile repository is required")
	}
	if users == nil {
		return nil, oops.Code("PROFILE_INVALID_CONFIG").Errorf("user reader is required")
	}
	s := &Service{
		profiles: profiles,
		users:    users,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		return nil, oops.Code("PROFILE_INVALID_CONFIG").Errorf("logger cannot be nil")
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Create attaches a new profile to the user.
func (s *Service) Create(ctx context.Context, userID ulid.ULID, phoneNumber string, dateOfBirth time.Time) (*Profile, error) {
	if _, err := s.lookupUser(ctx, userID); err != nil {
		return nil, err
	}

	p, err := NewProfile(userID, phoneNumber, dateOfBirth, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.profiles.Create(ctx, p); err != nil {
		if errors.Is(err, auth.ErrAlreadyExists) {
			return nil, oops.Code("PROFILE_EXISTS").
				With("user_id", userID.String()).
				Errorf("profile already exists")
		}
		// The user was deleted between the lookup and the insert.
		if errors.Is(err, auth.ErrNotFound) {
			return nil, oops.Code("PROFILE_USER_NOT_FOUND").
				With("user_id", userID.String()).
				Errorf("user not found")
		}
		return nil, oops.Code("PROFILE_CREATE_FAILED").
			With("operation", "insert profile").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "profile created", "user_id", userID.String())
	return p, nil
}

// Get returns the profile of a user with the owner summary.
func (s *Service) Get(ctx context.Context, userID ulid.ULID) (*View, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("PROFILE_USER_ID_REQUIRED").Errorf("user ID is required")
	}

	p, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		// The foreign key cascades, so a profile never outlives its user.
		if errors.Is(err, auth.ErrNotFound) {
			return nil, oops.Code("PROFILE_NOT_FOUND").Errorf("profile not found")
		}
		return nil, oops.Code("PROFILE_GET_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}

	return &View{
		Profile: p,
		User: UserSummary{
			FullName: user.FullName,
			Email:    user.Email,
			Verified: user.Verified,
		},
	}, nil
}

// Update applies changes to the user's own profile.
func (s *Service) Update(ctx context.Context, userID ulid.ULID, changes Changes) (*Profile, error) {
	if changes.IsEmpty() {
		return nil, oops.Code("PROFILE_INVALID_INPUT").Errorf("no fields to update")
	}

	p, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := p.Apply(changes, s.now()); err != nil {
		return nil, err
	}

	if err := s.profiles.Update(ctx, p); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil, oops.Code("PROFILE_NOT_FOUND").Errorf("profile not found")
		}
		return nil, oops.Code("PROFILE_UPDATE_FAILED").
			With("operation", "update profile").
			Wrap(err)
	}
	return p, nil
}

// Delete removes the user's own profile.
func (s *Service) Delete(ctx context.Context, userID ulid.ULID) error {
	if err := s.profiles.DeleteByUser(ctx, userID); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return oops.Code("PROFILE_NOT_FOUND").Errorf("profile not found")
		}
		return oops.Code("PROFILE_DELETE_FAILED").
			With("operation", "delete profile").
			Wrap(err)
	}
	s.logger.InfoContext(ctx, "profile deleted", "user_id", userID.String())
	return nil
}

func (s *Service) load(ctx context.Context, userID ulid.ULID) (*Profile, error) {
	p, err := s.profiles.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil, oops.Code("PROFILE_NOT_FOUND").
				With("user_id", userID.String()).
				Errorf("profile not found")
		}
		return nil, oops.Code("PROFILE_GET_FAILED").
			With("operation", "get profile by user").
			Wrap(err)
	}
	return p, nil
}

func (s *Service) lookupUser(ctx context.Context, userID ulid.ULID) (*auth.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil, oops.Code("PROFILE_USER_NOT_FOUND").
				With("user_id", userID.String()).
				Errorf("user not found")
		}
		return nil, oops.Code("PROFILE_CREATE_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}
	return user, nil
}
