// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session backs one outstanding refresh token. Its ID is the token's jti,
// and only the SHA256 of the signed token is stored.
type Session struct {
	ID         ulid.ULID
	UserID     ulid.ULID
	TokenHash  string
	UserAgent  string
	IPAddress  string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	LastUsedAt time.Time
}

// NewSession creates a validated Session instance.
// UserAgent and IPAddress are optional and may be empty.
func NewSession(id, userID ulid.ULID, tokenHash, userAgent, ipAddress string, expiresAt time.Time) (*Session, error) {
	if id.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_ID").Errorf("session ID cannot be zero")
	}
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	now := time.Now()
	return &Session{
		ID:         id,
		UserID:     userID,
		TokenHash:  tokenHash,
		UserAgent:  truncate(userAgent, maxUserAgentLength),
		IPAddress:  ipAddress,
		ExpiresAt:  expiresAt,
		CreatedAt:  now,
		LastUsedAt: now,
	}, nil
}

const maxUserAgentLength = 512

// truncate drops invalid UTF-8 and cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	s = strings.ToValidUTF8(s, "")
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return s.IsExpiredAt(time.Now())
}

// IsExpiredAt returns true if the session would be expired at the given time.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return t.After(s.ExpiresAt)
}

// HashToken computes the hex SHA256 of a refresh or reset token.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// VerifyTokenHash checks if the plaintext token matches the stored hash.
// Uses constant-time comparison to prevent timing attacks.
func VerifyTokenHash(token, hash string) bool {
	if token == "" || hash == "" {
		return false
	}
	computed := HashToken(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}

// SessionRepository manages refresh session persistence.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetByID retrieves a session by its ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Session, error)

	// GetByUser retrieves all unexpired sessions for a user, newest first.
	GetByUser(ctx context.Context, userID ulid.ULID) ([]*Session, error)

	// Delete removes a session by ID.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteByUser removes all sessions for a user and returns the count.
	DeleteByUser(ctx context.Context, userID ulid.ULID) (int64, error)

	// DeleteExpired removes all expired sessions and returns the count
	// of deleted records.
	DeleteExpired(ctx context.Context) (int64, error)
}
