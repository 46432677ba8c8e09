// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

// Package postgres stores profiles in PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/pinghq/ping-auth/internal/auth"
	"github.com/pinghq/ping-auth/internal/profile"
	"github.com/pinghq/ping-auth/internal/store"
)

const profileColumns = `id, user_id, bio, avatar, phone_number, date_of_birth, created_at, updated_at`

// ProfileRepository implements profile.Repository using PostgreSQL.
type ProfileRepository struct {
	db store.DB
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(db store.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create stores a new profile.
func (r *ProfileRepository) Create(ctx context.Context, p *profile.Profile) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		p.ID.String(),
		p.UserID.String(),
		p.Bio,
		p.Avatar,
		p.PhoneNumber,
		p.DateOfBirth,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return oops.Code("PROFILE_EXISTS").
				With("user_id", p.UserID.String()).
				Wrap(auth.ErrAlreadyExists)
		}
		if store.IsForeignKeyViolation(err) {
			return oops.Code("PROFILE_USER_NOT_FOUND").
				With("user_id", p.UserID.String()).
				Wrap(auth.ErrNotFound)
		}
		return oops.Code("PROFILE_CREATE_FAILED").
			With("operation", "insert profile").
			Wrap(err)
	}
	return nil
}

// GetByUser retrieves the profile owned by userID.
func (r *ProfileRepository) GetByUser(ctx context.Context, userID ulid.ULID) (*profile.Profile, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE user_id = $1
	`, userID.String())

	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("PROFILE_NOT_FOUND").
			With("user_id", userID.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("PROFILE_GET_FAILED").
			With("operation", "get profile by user").
			Wrap(err)
	}
	return p, nil
}

// Update writes the mutable fields of a profile.
func (r *ProfileRepository) Update(ctx context.Context, p *profile.Profile) error {
	result, err := r.db.Exec(ctx, `
		UPDATE profiles SET
			bio = $2,
			avatar = $3,
			phone_number = $4,
			date_of_birth = $5,
			updated_at = $6
		WHERE id = $1
	`, p.ID.String(), p.Bio, p.Avatar, p.PhoneNumber, p.DateOfBirth, p.UpdatedAt)
	if err != nil {
		return oops.Code("PROFILE_UPDATE_FAILED").
			With("operation", "update profile").
			With("id", p.ID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("PROFILE_NOT_FOUND").
			With("id", p.ID.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteByUser removes the profile owned by userID.
func (r *ProfileRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID.String())
	if err != nil {
		return oops.Code("PROFILE_DELETE_FAILED").
			With("operation", "delete profile").
			With("user_id", userID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("PROFILE_NOT_FOUND").
			With("user_id", userID.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanProfile scans a row into a Profile. Scan errors are returned unchanged.
func scanProfile(row pgx.Row) (*profile.Profile, error) {
	var (
		idStr, userIDStr string
		p                profile.Profile
	)
	err := row.Scan(&idStr, &userIDStr, &p.Bio, &p.Avatar, &p.PhoneNumber, &p.DateOfBirth, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers attach codes
	}

	if p.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.Code("PROFILE_INVALID_ID").With("id", idStr).Wrap(err)
	}
	if p.UserID, err = ulid.Parse(userIDStr); err != nil {
		return nil, oops.Code("PROFILE_INVALID_USER_ID").With("user_id", userIDStr).Wrap(err)
	}
	return &p, nil
}

// Compile-time interface check.
var _ profile.Repository = (*ProfileRepository)(nil)
