// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pinghq/ping-auth/internal/auth"
	"github.com/pinghq/ping-auth/pkg/errutil"
)

func TestArgon2idHasher_Hash(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	t.Run("produces PHC formatted hash", func(t *testing.T) {
		hash, err := hasher.Hash("Password1!")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$"))
		assert.Len(t, strings.Split(hash, "$"), 6)
	})

	t.Run("same password produces different hashes (salt)", func(t *testing.T) {
		hash1, err := hasher.Hash("Password1!")
		require.NoError(t, err)
		hash2, err := hasher.Hash("Password1!")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_EMPTY_PASSWORD")
	})

	t.Run("custom params are encoded", func(t *testing.T) {
		light := auth.NewArgon2idHasherWithParams(auth.Argon2Params{Time: 2, Memory: 8 * 1024, Threads: 1})
		hash, err := light.Hash("Password1!")
		require.NoError(t, err)
		assert.Contains(t, hash, "$m=8192,t=2,p=1$")
	})
}

func TestArgon2idHasher_Verify(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	t.Run("correct password verifies", func(t *testing.T) {
		hash, err := hasher.Hash("Correct1!")
		require.NoError(t, err)

		ok, err := hasher.Verify("Correct1!", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("incorrect password fails", func(t *testing.T) {
		hash, err := hasher.Hash("Correct1!")
		require.NoError(t, err)

		ok, err := hasher.Verify("Wrong1!", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	tests := []struct {
		name     string
		hash     string
		contains string
	}{
		{"invalid hash format", "not-a-valid-hash", "invalid hash format"},
		{"wrong algorithm", "$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA", "unsupported hash algorithm"},
		{"invalid version format", "$argon2id$vXX$m=65536,t=1,p=4$c2FsdA$aGFzaA", ""},
		{"unsupported version", "$argon2id$v=16$m=65536,t=1,p=4$c2FsdA$aGFzaA", "unsupported argon2 version"},
		{"invalid parameters", "$argon2id$v=19$invalid$c2FsdA$aGFzaA", ""},
		{"invalid salt base64", "$argon2id$v=19$m=65536,t=1,p=4$!!!invalid!!!$aGFzaA", ""},
		{"invalid hash base64", "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$!!!invalid!!!", ""},
		{"threads overflow", "$argon2id$v=19$m=65536,t=1,p=256$c2FsdA$aGFzaA", "threads value"},
		{"zero threads", "$argon2id$v=19$m=65536,t=1,p=0$c2FsdA$aGFzaA", "threads value"},
	}
	for _, tt := range tests {
		t.Run(tt.name+" returns error", func(t *testing.T) {
			_, err := hasher.Verify("password", tt.hash)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASH")
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestArgon2idHasher_LegacyBcrypt(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	legacy, err := bcrypt.GenerateFromPassword([]byte("Legacy1!"), bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("verifies matching bcrypt password", func(t *testing.T) {
		ok, err := hasher.Verify("Legacy1!", string(legacy))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("rejects wrong bcrypt password without error", func(t *testing.T) {
		ok, err := hasher.Verify("Other1!", string(legacy))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("malformed bcrypt hash returns error", func(t *testing.T) {
		_, err := hasher.Verify("Legacy1!", "$2a$10$short")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASH")
	})

	t.Run("bcrypt hash needs upgrade", func(t *testing.T) {
		assert.True(t, hasher.NeedsUpgrade(string(legacy)))
	})
}

func TestArgon2idHasher_NeedsUpgrade(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	t.Run("current argon2id hash does not need upgrade", func(t *testing.T) {
		hash, err := hasher.Hash("Password1!")
		require.NoError(t, err)
		assert.False(t, hasher.NeedsUpgrade(hash))
	})

	t.Run("weaker argon2id parameters need upgrade", func(t *testing.T) {
		light := auth.NewArgon2idHasherWithParams(auth.Argon2Params{Memory: 8 * 1024})
		hash, err := light.Hash("Password1!")
		require.NoError(t, err)
		assert.True(t, hasher.NeedsUpgrade(hash))
	})

	t.Run("garbage needs upgrade", func(t *testing.T) {
		assert.True(t, hasher.NeedsUpgrade("$argon2id$broken"))
	})
}
