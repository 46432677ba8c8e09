// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinghq/ping-auth/internal/auth"
	"github.com/pinghq/ping-auth/pkg/errutil"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestIssuer(t *testing.T, clock *fakeClock) *auth.TokenIssuer {
	t.Helper()
	cfg := auth.TokenConfig{Secret: testSecret, Issuer: "ping-auth", Audience: "ping"}
	if clock != nil {
		cfg.Now = clock.Now
	}
	issuer, err := auth.NewTokenIssuer(cfg)
	require.NoError(t, err)
	return issuer
}

func TestNewTokenIssuer_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  auth.TokenConfig
		msg  string
	}{
		{"short secret", auth.TokenConfig{Secret: "short", Issuer: "i", Audience: "a"}, "at least 32 bytes"},
		{"missing issuer", auth.TokenConfig{Secret: testSecret, Audience: "a"}, "issuer is required"},
		{"missing audience", auth.TokenConfig{Secret: testSecret, Issuer: "i"}, "audience is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issuer, err := auth.NewTokenIssuer(tt.cfg)
			require.Error(t, err)
			assert.Nil(t, issuer)
			errutil.AssertErrorCode(t, err, "AUTH_TOKEN_CONFIG_INVALID")
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestTokenIssuer_DefaultTTLs(t *testing.T) {
	issuer := newTestIssuer(t, nil)
	assert.Equal(t, time.Hour, issuer.TTL(auth.PurposeAccess))
	assert.Equal(t, 7*24*time.Hour, issuer.TTL(auth.PurposeRefresh))
	assert.Equal(t, time.Hour, issuer.TTL(auth.PurposeEmailVerification))
}

func TestTokenIssuer_IssueAndVerify(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	issuer := newTestIssuer(t, clock)
	userID := ulid.Make()

	t.Run("round trip preserves claims", func(t *testing.T) {
		issued, err := issuer.Issue(userID, auth.PurposeAccess, "")
		require.NoError(t, err)
		_, err = uuid.Parse(issued.ID)
		require.NoError(t, err, "generated jti should be a UUID")
		assert.Equal(t, clock.now.Add(time.Hour), issued.ExpiresAt)

		claims, err := issuer.Verify(issued.Token, auth.PurposeAccess)
		require.NoError(t, err)
		assert.Equal(t, auth.PurposeAccess, claims.Purpose)
		assert.Equal(t, issued.ID, claims.ID)
		got, err := claims.UserID()
		require.NoError(t, err)
		assert.Equal(t, userID, got)
	})

	t.Run("explicit id is kept", func(t *testing.T) {
		sessionID := ulid.Make().String()
		issued, err := issuer.Issue(userID, auth.PurposeRefresh, sessionID)
		require.NoError(t, err)
		claims, err := issuer.Verify(issued.Token, auth.PurposeRefresh)
		require.NoError(t, err)
		assert.Equal(t, sessionID, claims.ID)
	})

	t.Run("purpose mismatch is rejected", func(t *testing.T) {
		issued, err := issuer.Issue(userID, auth.PurposeRefresh, "")
		require.NoError(t, err)
		_, err = issuer.Verify(issued.Token, auth.PurposeAccess)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_TOKEN")
		assert.Contains(t, err.Error(), "purpose mismatch")
	})

	t.Run("expired token reports expiry", func(t *testing.T) {
		issued, err := issuer.Issue(userID, auth.PurposeEmailVerification, "")
		require.NoError(t, err)
		clock.Advance(2 * time.Hour)
		defer clock.Advance(-2 * time.Hour)

		_, err = issuer.Verify(issued.Token, auth.PurposeEmailVerification)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_TOKEN_EXPIRED")
	})

	t.Run("unknown purpose cannot be issued", func(t *testing.T) {
		_, err := issuer.Issue(userID, auth.TokenPurpose("admin"), "")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_TOKEN_SIGN_FAILED")
	})
}

func TestTokenIssuer_VerifyRejects(t *testing.T) {
	issuer := newTestIssuer(t, nil)
	userID := ulid.Make()

	t.Run("empty token", func(t *testing.T) {
		_, err := issuer.Verify("", auth.PurposeAccess)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_TOKEN_MISSING")
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Verify("not.a.jwt", auth.PurposeAccess)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_TOKEN")
	})

	t.Run("tampered signature", func(t *testing.T) {
		issued, err := issuer.Issue(userID, auth.PurposeAccess, "")
		require.NoError(t, err)
		tampered := issued.Token[:strings.LastIndex(issued.Token, ".")+1] + "AAAA"
		_, err = issuer.Verify(tampered, auth.PurposeAccess)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_TOKEN")
	})

	t.Run("different secret", func(t *testing.T) {
		other, err := auth.NewTokenIssuer(auth.TokenConfig{
			Secret: strings.Repeat("z", 32), Issuer: "ping-auth", Audience: "ping",
		})
		require.NoError(t, err)
		issued, err := other.Issue(userID, auth.PurposeAccess, "")
		require.NoError(t, err)
		_, err = issuer.Verify(issued.Token, auth.PurposeAccess)
		require.Error(t, err)
	})

	t.Run("different audience", func(t *testing.T) {
		other, err := auth.NewTokenIssuer(auth.TokenConfig{
			Secret: testSecret, Issuer: "ping-auth", Audience: "someone-else",
		})
		require.NoError(t, err)
		issued, err := other.Issue(userID, auth.PurposeAccess, "")
		require.NoError(t, err)
		_, err = issuer.Verify(issued.Token, auth.PurposeAccess)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_TOKEN")
	})

	t.Run("none algorithm", func(t *testing.T) {
		claims := auth.Claims{
			Purpose: auth.PurposeAccess,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   userID.String(),
				Issuer:    "ping-auth",
				Audience:  jwt.ClaimStrings{"ping"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = issuer.Verify(unsigned, auth.PurposeAccess)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_TOKEN")
	})

	t.Run("missing expiry", func(t *testing.T) {
		claims := auth.Claims{
			Purpose: auth.PurposeAccess,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:  userID.String(),
				Issuer:   "ping-auth",
				Audience: jwt.ClaimStrings{"ping"},
			},
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = issuer.Verify(signed, auth.PurposeAccess)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_TOKEN")
	})

	t.Run("non-ULID subject", func(t *testing.T) {
		claims := auth.Claims{
			Purpose: auth.PurposeAccess,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "42",
				Issuer:    "ping-auth",
				Audience:  jwt.ClaimStrings{"ping"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = issuer.Verify(signed, auth.PurposeAccess)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_TOKEN")
	})
}
