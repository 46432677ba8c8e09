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
	"github.com/pinghq/ping-auth/internal/profile"
	"github.com/pinghq/ping-auth/internal/profile/postgres"
	"github.com/pinghq/ping-auth/pkg/errutil"
)

var profileCols = []string{"id", "user_id", "bio", "avatar", "phone_number", "date_of_birth", "created_at", "updated_at"}

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

func sampleProfile() *profile.Profile {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &profile.Profile{
		ID:          ulid.Make(),
		UserID:      ulid.Make(),
		PhoneNumber: "+14155550123",
		DateOfBirth: time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func profileArgs(p *profile.Profile) []any {
	return []any{p.ID.String(), p.UserID.String(), p.Bio, p.Avatar, p.PhoneNumber, p.DateOfBirth, p.CreatedAt, p.UpdatedAt}
}

func TestProfileRepository_Create(t *testing.T) {
	ctx := context.Background()
	p := sampleProfile()

	tests := []struct {
		name    string
		execErr error
		code    string
		is      error
	}{
		{"inserts", nil, "", nil},
		{"one profile per user", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, "PROFILE_EXISTS", auth.ErrAlreadyExists},
		{"unknown user", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, "PROFILE_USER_NOT_FOUND", auth.ErrNotFound},
		{"other failure", errors.New("timeout"), "PROFILE_CREATE_FAILED", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPool(t)
			repo := postgres.NewProfileRepository(mock)

			exp := mock.ExpectExec(regexp.QuoteMeta("INSERT INTO profiles")).WithArgs(profileArgs(p)...)
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(pgxmock.NewResult("INSERT", 1))
			}

			err := repo.Create(ctx, p)
			if tt.code == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.code)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestProfileRepository_GetByUser(t *testing.T) {
	ctx := context.Background()
	p := sampleProfile()
	p.Bio = "hello"

	t.Run("found", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewProfileRepository(mock)

		mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1")).
			WithArgs(p.UserID.String()).
			WillReturnRows(pgxmock.NewRows(profileCols).AddRow(profileArgs(p)...))

		got, err := repo.GetByUser(ctx, p.UserID)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	})

	t.Run("not found", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewProfileRepository(mock)

		mock.ExpectQuery(regexp.QuoteMeta("FROM profiles")).
			WithArgs(p.UserID.String()).
			WillReturnRows(pgxmock.NewRows(profileCols))

		_, err := repo.GetByUser(ctx, p.UserID)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "PROFILE_NOT_FOUND")
	})

	t.Run("query error", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewProfileRepository(mock)

		mock.ExpectQuery(regexp.QuoteMeta("FROM profiles")).
			WithArgs(p.UserID.String()).
			WillReturnError(errors.New("timeout"))

		_, err := repo.GetByUser(ctx, p.UserID)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "PROFILE_GET_FAILED")
	})
}

func TestProfileRepository_Update(t *testing.T) {
	ctx := context.Background()
	p := sampleProfile()

	t.Run("updates", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewProfileRepository(mock)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE profiles SET")).
			WithArgs(p.ID.String(), p.Bio, p.Avatar, p.PhoneNumber, p.DateOfBirth, p.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.Update(ctx, p))
	})

	t.Run("missing", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewProfileRepository(mock)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE profiles SET")).
			WithArgs(p.ID.String(), p.Bio, p.Avatar, p.PhoneNumber, p.DateOfBirth, p.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		assert.ErrorIs(t, repo.Update(ctx, p), auth.ErrNotFound)
	})
}

func TestProfileRepository_DeleteByUser(t *testing.T) {
	ctx := context.Background()
	userID := ulid.Make()

	t.Run("deletes", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewProfileRepository(mock)

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM profiles WHERE user_id = $1")).
			WithArgs(userID.String()).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		require.NoError(t, repo.DeleteByUser(ctx, userID))
	})

	t.Run("missing", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewProfileRepository(mock)

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM profiles WHERE user_id = $1")).
			WithArgs(userID.String()).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := repo.DeleteByUser(ctx, userID)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "PROFILE_NOT_FOUND")
	})

	t.Run("failure", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewProfileRepository(mock)

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM profiles")).
			WithArgs(userID.String()).
			WillReturnError(errors.New("timeout"))

		errutil.AssertErrorCode(t, repo.DeleteByUser(ctx, userID), "PROFILE_DELETE_FAILED")
	})
}
