// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/pinghq/ping-auth/internal/auth"
	"github.com/pinghq/ping-auth/internal/store"
)

// PasswordResetRepository implements auth.PasswordResetRepository using PostgreSQL.
type PasswordResetRepository struct {
	db  store.DB
	now func() time.Time
}

// NewPasswordResetRepository creates a new PasswordResetRepository.
func NewPasswordResetRepository(db store.DB) *PasswordResetRepository {
	return &PasswordResetRepository{db: db, now: time.Now}
}

// Create stores a new password reset request.
func (r *PasswordResetRepository) Create(ctx context.Context, reset *auth.PasswordReset) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO password_resets (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, reset.ID.String(), reset.UserID.String(), reset.TokenHash, reset.ExpiresAt, reset.CreatedAt)
	if err != nil {
		return oops.Code("RESET_CREATE_FAILED").
			With("operation", "insert password_reset").
			With("user_id", reset.UserID.String()).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a reset request by its token hash.
func (r *PasswordResetRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.PasswordReset, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM password_resets
		WHERE token_hash = $1
	`, tokenHash)

	reset, err := scanReset(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("RESET_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("RESET_GET_FAILED").
			With("operation", "get reset by token hash").
			Wrap(err)
	}
	return reset, nil
}

// DeleteByUser removes all reset requests for a user. Deleting nothing is not an error.
func (r *PasswordResetRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM password_resets WHERE user_id = $1`, userID.String())
	if err != nil {
		return oops.Code("RESET_DELETE_BY_USER_FAILED").
			With("operation", "delete password_resets by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes all expired reset requests and returns the count.
func (r *PasswordResetRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM password_resets WHERE expires_at < $1`, r.now())
	if err != nil {
		return 0, oops.Code("RESET_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired password_resets").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// scanReset scans a row into a PasswordReset. Scan errors are returned unchanged.
func scanReset(row pgx.Row) (*auth.PasswordReset, error) {
	var (
		idStr, userIDStr string
		reset            auth.PasswordReset
	)
	err := row.Scan(&idStr, &userIDStr, &reset.TokenHash, &reset.ExpiresAt, &reset.CreatedAt)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers attach codes
	}

	if reset.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.Code("RESET_INVALID_ID").With("id", idStr).Wrap(err)
	}
	if reset.UserID, err = ulid.Parse(userIDStr); err != nil {
		return nil, oops.Code("RESET_INVALID_USER_ID").With("user_id", userIDStr).Wrap(err)
	}
	return &reset, nil
}

// Compile-time interface check.
var _ auth.PasswordResetRepository = (*PasswordResetRepository)(nil)
