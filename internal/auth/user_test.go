// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinghq/ping-auth/internal/auth"
	"github.com/pinghq/ping-auth/pkg/errutil"
)

func TestNewUser(t *testing.T) {
	t.Run("creates unverified user with normalized email", func(t *testing.T) {
		user, err := auth.NewUser("  Ada Lovelace ", "  Ada@Example.COM ", "hash")
		require.NoError(t, err)
		assert.NotEqual(t, ulid.ULID{}, user.ID)
		assert.Equal(t, "Ada Lovelace", user.FullName)
		assert.Equal(t, "ada@example.com", user.Email)
		assert.Equal(t, "hash", user.PasswordHash)
		assert.False(t, user.Verified)
		assert.Zero(t, user.FailedAttempts)
		assert.False(t, user.CreatedAt.IsZero())
		assert.Equal(t, user.CreatedAt, user.UpdatedAt)
	})

	tests := []struct {
		name     string
		fullName string
		email    string
		hash     string
		code     string
		field    string
	}{
		{"empty full name", " ", "a@example.com", "hash", "AUTH_INVALID_INPUT", "full_name"},
		{"long full name", strings.Repeat("x", auth.MaxFullNameLength+1), "a@example.com", "hash", "AUTH_INVALID_INPUT", "full_name"},
		{"empty email", "Ada", "", "hash", "AUTH_INVALID_INPUT", "email"},
		{"malformed email", "Ada", "not-an-email", "hash", "AUTH_INVALID_INPUT", "email"},
		{"empty hash", "Ada", "a@example.com", "", "USER_INVALID_HASH", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := auth.NewUser(tt.fullName, tt.email, tt.hash)
			require.Error(t, err)
			assert.Nil(t, user)
			errutil.AssertErrorCode(t, err, tt.code)
			if tt.field != "" {
				errutil.AssertErrorContext(t, err, "field", tt.field)
			}
		})
	}
}

func TestValidateFullName_CountsRunes(t *testing.T) {
	name := strings.Repeat("é", auth.MaxFullNameLength)
	assert.NoError(t, auth.ValidateFullName(name))
}

func TestValidateEmail_TooLong(t *testing.T) {
	email := strings.Repeat("a", auth.MaxEmailLength) + "@example.com"
	err := auth.ValidateEmail(email)
	require.Error(t, err)
	errutil.AssertErrorContext(t, err, "max", auth.MaxEmailLength)
}

func TestUser_MarkVerified(t *testing.T) {
	user := &auth.User{}
	assert.True(t, user.MarkVerified())
	assert.True(t, user.Verified)
	assert.False(t, user.MarkVerified(), "second call reports no transition")
	assert.True(t, user.Verified)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", auth.NormalizeEmail(" USER@Example.com\n"))
}
