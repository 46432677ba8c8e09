// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package postgres_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinghq/ping-auth/internal/auth"
	"github.com/pinghq/ping-auth/internal/auth/postgres"
	"github.com/pinghq/ping-auth/pkg/errutil"
)

var userCols = []string{"id", "full_name", "email", "password_hash", "verified", "failed_attempts", "locked_until", "created_at", "updated_at"}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func sampleUser() *auth.User {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &auth.User{
		ID:           ulid.Make(),
		FullName:     "Ada Lovelace",
		Email:        "ada@example.com",
		PasswordHash: "$argon2id$hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func userRow(u *auth.User) *pgxmock.Rows {
	return pgxmock.NewRows(userCols).AddRow(
		u.ID.String(), u.FullName, u.Email, u.PasswordHash, u.Verified,
		u.FailedAttempts, u.LockedUntil, u.CreatedAt, u.UpdatedAt,
	)
}

func TestUserRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts user", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)
		u := sampleUser()

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
			WithArgs(u.ID.String(), u.FullName, u.Email, u.PasswordHash, false, 0,
				pgxmock.AnyArg(), u.CreatedAt, u.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.Create(ctx, u))
	})

	t.Run("duplicate email maps to ErrAlreadyExists", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

		err := repo.Create(ctx, sampleUser())
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrAlreadyExists)
		errutil.AssertErrorCode(t, err, "USER_EMAIL_EXISTS")
	})

	t.Run("other errors are wrapped", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(errors.New("connection reset"))

		err := repo.Create(ctx, sampleUser())
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "USER_CREATE_FAILED")
	})
}

func TestUserRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)
		u := sampleUser()
		locked := time.Date(2026, 3, 1, 12, 15, 0, 0, time.UTC)
		u.FailedAttempts = 7
		u.LockedUntil = &locked

		mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
			WithArgs(u.ID.String()).
			WillReturnRows(userRow(u))

		got, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u, got)
	})

	t.Run("not found", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)
		id := ulid.Make()

		mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
			WithArgs(id.String()).
			WillReturnRows(pgxmock.NewRows(userCols))

		_, err := repo.GetByID(ctx, id)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "USER_NOT_FOUND")
	})

	t.Run("corrupt id", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)
		u := sampleUser()
		id := u.ID

		rows := pgxmock.NewRows(userCols).AddRow(
			"not-a-ulid", u.FullName, u.Email, u.PasswordHash, false, 0, (*time.Time)(nil), u.CreatedAt, u.UpdatedAt)
		mock.ExpectQuery(regexp.QuoteMeta("FROM users")).WithArgs(id.String()).WillReturnRows(rows)

		_, err := repo.GetByID(ctx, id)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "USER_INVALID_ID")
	})
}

func TestUserRepository_GetByEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)
		u := sampleUser()

		mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(email) = LOWER($1)")).
			WithArgs("ada@example.com").
			WillReturnRows(userRow(u))

		got, err := repo.GetByEmail(ctx, "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.Nil(t, got.LockedUntil)
	})

	t.Run("not found", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)

		mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
			WithArgs("nobody@example.com").
			WillReturnRows(pgxmock.NewRows(userCols))

		_, err := repo.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("query error", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)

		mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
			WithArgs("ada@example.com").
			WillReturnError(errors.New("timeout"))

		_, err := repo.GetByEmail(ctx, "ada@example.com")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "USER_GET_FAILED")
	})
}

func TestUserRepository_RecordLoginFailure(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	t.Run("increments in place", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)

		mock.ExpectExec(regexp.QuoteMeta("failed_attempts = failed_attempts + 1")).
			WithArgs(id.String(), auth.LockoutThreshold, auth.LockoutDuration.Seconds()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.RecordLoginFailure(ctx, id))
	})

	t.Run("missing user", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET")).
			WithArgs(id.String(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		assert.ErrorIs(t, repo.RecordLoginFailure(ctx, id), auth.ErrNotFound)
	})

	t.Run("exec error", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET")).
			WithArgs(id.String(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(errors.New("deadlock"))

		err := repo.RecordLoginFailure(ctx, id)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "USER_RECORD_FAILURE_FAILED")
	})
}

func TestUserRepository_RecordLoginSuccess(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	t.Run("clears counters", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)

		mock.ExpectExec(regexp.QuoteMeta("failed_attempts = 0")).
			WithArgs(id.String()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.RecordLoginSuccess(ctx, id))
	})

	t.Run("nothing to clear", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET")).
			WithArgs(id.String()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		require.NoError(t, repo.RecordLoginSuccess(ctx, id))
	})

	t.Run("exec error", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET")).
			WithArgs(id.String()).
			WillReturnError(errors.New("timeout"))

		err := repo.RecordLoginSuccess(ctx, id)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "USER_RECORD_SUCCESS_FAILED")
	})
}

func TestUserRepository_UpgradePasswordHash(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	t.Run("swaps matching hash", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)

		mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND password_hash = $2")).
			WithArgs(id.String(), "$argon2id$old", "$argon2id$new").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		upgraded, err := repo.UpgradePasswordHash(ctx, id, "$argon2id$old", "$argon2id$new")
		require.NoError(t, err)
		assert.True(t, upgraded)
	})

	t.Run("hash changed concurrently", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)

		mock.ExpectExec(regexp.QuoteMeta("password_hash = $2")).
			WithArgs(id.String(), "$argon2id$old", "$argon2id$new").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		upgraded, err := repo.UpgradePasswordHash(ctx, id, "$argon2id$old", "$argon2id$new")
		require.NoError(t, err)
		assert.False(t, upgraded)
	})

	t.Run("exec error", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET")).
			WithArgs(id.String(), "$argon2id$old", "$argon2id$new").
			WillReturnError(errors.New("timeout"))

		_, err := repo.UpgradePasswordHash(ctx, id, "$argon2id$old", "$argon2id$new")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "USER_UPGRADE_HASH_FAILED")
	})
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	t.Run("clears lockout", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)

		mock.ExpectExec(regexp.QuoteMeta("locked_until = NULL")).
			WithArgs(id.String(), "$argon2id$new").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.UpdatePassword(ctx, id, "$argon2id$new"))
	})

	t.Run("missing user", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET")).
			WithArgs(id.String(), "$argon2id$new").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		assert.ErrorIs(t, repo.UpdatePassword(ctx, id, "$argon2id$new"), auth.ErrNotFound)
	})

	t.Run("exec error", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET")).
			WithArgs(id.String(), "$argon2id$new").
			WillReturnError(errors.New("timeout"))

		err := repo.UpdatePassword(ctx, id, "$argon2id$new")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "USER_UPDATE_PASSWORD_FAILED")
	})
}

func TestUserRepository_MarkVerifiedAndDelete(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	t.Run("mark verified", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)

		mock.ExpectExec(regexp.QuoteMeta("SET verified = TRUE")).
			WithArgs(id.String()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.MarkVerified(ctx, id))
	})

	t.Run("mark verified missing user", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)

		mock.ExpectExec(regexp.QuoteMeta("SET verified = TRUE")).
			WithArgs(id.String()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		assert.ErrorIs(t, repo.MarkVerified(ctx, id), auth.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users")).
			WithArgs(id.String()).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		require.NoError(t, repo.Delete(ctx, id))
	})

	t.Run("delete missing", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users")).
			WithArgs(id.String()).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := repo.Delete(ctx, id)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "USER_NOT_FOUND")
	})
}
