// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/pinghq/ping-auth/internal/auth"
	"github.com/pinghq/ping-auth/internal/store"
)

const userColumns = `id, full_name, email, password_hash, verified, failed_attempts, locked_until, created_at, updated_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	db store.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db store.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		user.ID.String(),
		user.FullName,
		user.Email,
		user.PasswordHash,
		user.Verified,
		user.FailedAttempts,
		user.LockedUntil,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return oops.Code("USER_EMAIL_EXISTS").
				With("email", user.Email).
				Wrap(auth.ErrAlreadyExists)
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "get user by id").
			With("id", id.String()).
			Wrap(err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email, ignoring case.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`, email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}
	return user, nil
}

// RecordLoginFailure increments failed_attempts in place so concurrent
// writes to other columns are never overwritten.
func (r *UserRepository) RecordLoginFailure(ctx context.Context, id ulid.ULID) error {
	result, err := r.db.Exec(ctx, `
		UPDATE users SET
			failed_attempts = failed_attempts + 1,
			locked_until = CASE
				WHEN failed_attempts + 1 >= $2 THEN NOW() + make_interval(secs => $3)
				ELSE NULL
			END,
			updated_at = NOW()
		WHERE id = $1
	`, id.String(), auth.LockoutThreshold, auth.LockoutDuration.Seconds())
	if err != nil {
		return oops.Code("USER_RECORD_FAILURE_FAILED").
			With("operation", "record login failure").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// RecordLoginSuccess clears the failure counter and lockout. Rows that have
// nothing to clear are left untouched.
func (r *UserRepository) RecordLoginSuccess(ctx context.Context, id ulid.ULID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users SET
			failed_attempts = 0,
			locked_until = NULL,
			updated_at = NOW()
		WHERE id = $1 AND (failed_attempts <> 0 OR locked_until IS NOT NULL)
	`, id.String())
	if err != nil {
		return oops.Code("USER_RECORD_SUCCESS_FAILED").
			With("operation", "record login success").
			With("id", id.String()).
			Wrap(err)
	}
	return nil
}

// UpgradePasswordHash replaces the hash only if it still equals oldHash.
func (r *UserRepository) UpgradePasswordHash(ctx context.Context, id ulid.ULID, oldHash, newHash string) (bool, error) {
	result, err := r.db.Exec(ctx, `
		UPDATE users SET
			password_hash = $3,
			updated_at = NOW()
		WHERE id = $1 AND password_hash = $2
	`, id.String(), oldHash, newHash)
	if err != nil {
		return false, oops.Code("USER_UPGRADE_HASH_FAILED").
			With("operation", "upgrade password hash").
			With("id", id.String()).
			Wrap(err)
	}
	return result.RowsAffected() == 1, nil
}

// UpdatePassword replaces the password hash and clears any lockout.
func (r *UserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE users SET
			password_hash = $2,
			failed_attempts = 0,
			locked_until = NULL,
			updated_at = NOW()
		WHERE id = $1
	`, id.String(), passwordHash)
	if err != nil {
		return oops.Code("USER_UPDATE_PASSWORD_FAILED").
			With("operation", "update password").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// MarkVerified sets the verified flag.
func (r *UserRepository) MarkVerified(ctx context.Context, id ulid.ULID) error {
	result, err := r.db.Exec(ctx, `
		UPDATE users SET verified = TRUE, updated_at = NOW()
		WHERE id = $1
	`, id.String())
	if err != nil {
		return oops.Code("USER_MARK_VERIFIED_FAILED").
			With("operation", "mark verified").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// Delete removes a user. Sessions, reset tokens and the profile cascade.
func (r *UserRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("USER_DELETE_FAILED").
			With("operation", "delete user").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanUser scans a row into a User. Scan errors are returned unchanged.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr string
		user  auth.User
	)
	err := row.Scan(
		&idStr,
		&user.FullName,
		&user.Email,
		&user.PasswordHash,
		&user.Verified,
		&user.FailedAttempts,
		&user.LockedUntil,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers attach codes
	}

	user.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}
	return &user, nil
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
