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

const sessionColumns = `id, user_id, token_hash, user_agent, ip_address, expires_at, created_at, last_used_at`

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	db  store.DB
	now func() time.Time
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db store.DB) *SessionRepository {
	return &SessionRepository{db: db, now: time.Now}
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		session.ID.String(),
		session.UserID.String(),
		session.TokenHash,
		session.UserAgent,
		session.IPAddress,
		session.ExpiresAt,
		session.CreatedAt,
		session.LastUsedAt,
	)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("user_id", session.UserID.String()).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Session, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE id = $1
	`, id.String())

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_ID_FAILED").
			With("operation", "get session by id").
			With("id", id.String()).
			Wrap(err)
	}
	return session, nil
}

// GetByUser retrieves the unexpired sessions of a user, newest first.
func (r *SessionRepository) GetByUser(ctx context.Context, userID ulid.ULID) ([]*auth.Session, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE user_id = $1 AND expires_at > $2
		ORDER BY created_at DESC
	`, userID.String(), r.now())
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_USER_FAILED").
			With("operation", "get sessions by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	defer rows.Close()

	var sessions []*auth.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, oops.Code("SESSION_ROWS_ERROR").
				With("operation", "scan session row").
				With("user_id", userID.String()).
				Wrap(err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("SESSION_ROWS_ERROR").
			With("operation", "iterate session rows").
			Wrap(err)
	}
	return sessions, nil
}

// Delete removes a session by ID.
func (r *SessionRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteByUser removes all sessions for a user and returns the count.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID.String())
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_BY_USER_FAILED").
			With("operation", "delete sessions by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// DeleteExpired removes all expired sessions and returns the count.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, r.now())
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// scanSession scans a row into a Session. Scan errors are returned unchanged.
func scanSession(row pgx.Row) (*auth.Session, error) {
	var (
		idStr, userIDStr string
		s                auth.Session
	)
	err := row.Scan(&idStr, &userIDStr, &s.TokenHash, &s.UserAgent, &s.IPAddress, &s.ExpiresAt, &s.CreatedAt, &s.LastUsedAt)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers attach codes
	}

	if s.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.Code("SESSION_INVALID_ID").With("id", idStr).Wrap(err)
	}
	if s.UserID, err = ulid.Parse(userIDStr); err != nil {
		return nil, oops.Code("SESSION_INVALID_USER_ID").With("user_id", userIDStr).Wrap(err)
	}
	return &s, nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
