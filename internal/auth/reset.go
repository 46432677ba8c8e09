// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

const (
	// ResetTokenBytes is the entropy of a reset token before hex encoding.
	ResetTokenBytes = 32
	// ResetTokenExpiry is how long a reset link stays usable.
	ResetTokenExpiry = time.Hour
)

// PasswordReset represents a password reset request.
type PasswordReset struct {
	ID        ulid.ULID
	UserID    ulid.ULID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewPasswordReset creates a validated PasswordReset instance.
func NewPasswordReset(userID ulid.ULID, tokenHash string, expiresAt time.Time) (*PasswordReset, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("RESET_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Code("RESET_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("RESET_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}
	return &PasswordReset{
		ID:        ulid.Make(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

// IsExpired returns true if the reset token has expired.
func (r *PasswordReset) IsExpired() bool {
	return r.IsExpiredAt(time.Now())
}

// IsExpiredAt returns true if the reset token would be expired at t.
func (r *PasswordReset) IsExpiredAt(t time.Time) bool {
	return t.After(r.ExpiresAt)
}

// GenerateResetToken returns a random hex token for the reset email and the
// hash that is stored in its place. Check a presented token with VerifyTokenHash.
func GenerateResetToken() (token, hash string, err error) {
	tokenBytes := make([]byte, ResetTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("RESET_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", ResetTokenBytes).
			Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	return token, HashToken(token), nil
}

// PasswordResetRepository manages password reset persistence.
type PasswordResetRepository interface {
	// Create stores a new password reset request.
	Create(ctx context.Context, reset *PasswordReset) error

	// GetByTokenHash retrieves a reset request by its token hash.
	GetByTokenHash(ctx context.Context, tokenHash string) (*PasswordReset, error)

	// DeleteByUser removes all reset requests for a user.
	DeleteByUser(ctx context.Context, userID ulid.ULID) error

	// DeleteExpired removes all expired reset requests.
	DeleteExpired(ctx context.Context) (int64, error)
}
