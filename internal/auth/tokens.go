// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// TokenPurpose distinguishes the tokens signed with the shared secret.
type TokenPurpose string

// Token purposes carried in the "typ" claim.
const (
	PurposeAccess            TokenPurpose = "access"
	PurposeRefresh           TokenPurpose = "refresh"
	PurposeEmailVerification TokenPurpose = "email_verification"
)

// Default token lifetimes.
const (
	DefaultAccessTokenTTL       = time.Hour
	DefaultRefreshTokenTTL      = 7 * 24 * time.Hour
	DefaultVerificationTokenTTL = time.Hour
)

// MinSecretLength is the minimum HMAC secret size in bytes.
const MinSecretLength = 32

// Claims are the JWT claims issued by TokenIssuer.
type Claims struct {
	Purpose TokenPurpose `json:"typ"`
	jwt.RegisteredClaims
}

// TokenConfig configures a TokenIssuer.
type TokenConfig struct {
	Secret          string
	Issuer          string
	Audience        string
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	VerificationTTL time.Duration

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// IssuedToken is a signed token with its identifying claims.
type IssuedToken struct {
	Token     string
	ID        string
	UserID    ulid.ULID
	Purpose   TokenPurpose
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies HS256 JWTs.
type TokenIssuer struct {
	secret []byte
	issuer string
	aud    string
	ttls   map[TokenPurpose]time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer. Zero TTLs fall back to the defaults.
func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, oops.Code("AUTH_TOKEN_CONFIG_INVALID").
			With("min_length", MinSecretLength).
			Errorf("token secret must be at least %d bytes", MinSecretLength)
	}
	if cfg.Issuer == "" {
		return nil, oops.Code("AUTH_TOKEN_CONFIG_INVALID").Errorf("token issuer is required")
	}
	if cfg.Audience == "" {
		return nil, oops.Code("AUTH_TOKEN_CONFIG_INVALID").Errorf("token audience is required")
	}

	ttls := map[TokenPurpose]time.Duration{
		PurposeAccess:            orDefault(cfg.AccessTTL, DefaultAccessTokenTTL),
		PurposeRefresh:           orDefault(cfg.RefreshTTL, DefaultRefreshTokenTTL),
		PurposeEmailVerification: orDefault(cfg.VerificationTTL, DefaultVerificationTokenTTL),
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &TokenIssuer{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		aud:    cfg.Audience,
		ttls:   ttls,
		now:    now,
	}, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// TTL returns the configured lifetime for a purpose.
func (i *TokenIssuer) TTL(purpose TokenPurpose) time.Duration {
	return i.ttls[purpose]
}

// Issue signs a token for the user. An empty id gets a random UUID.
func (i *TokenIssuer) Issue(userID ulid.ULID, purpose TokenPurpose, id string) (*IssuedToken, error) {
	ttl, ok := i.ttls[purpose]
	if !ok {
		return nil, oops.Code("AUTH_TOKEN_SIGN_FAILED").
			With("purpose", string(purpose)).
			Errorf("unknown token purpose")
	}
	if id == "" {
		id = uuid.NewString()
	}

	now := i.now()
	expiresAt := now.Add(ttl)
	claims := Claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.aud},
			ID:        id,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return nil, oops.Code("AUTH_TOKEN_SIGN_FAILED").
			With("purpose", string(purpose)).
			Wrap(err)
	}

	return &IssuedToken{
		Token:     signed,
		ID:        id,
		UserID:    userID,
		Purpose:   purpose,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify parses a token and checks signature, expiry, issuer, audience and purpose.
// Expired tokens return AUTH_TOKEN_EXPIRED; every other failure returns AUTH_INVALID_TOKEN.
func (i *TokenIssuer) Verify(token string, purpose TokenPurpose) (*Claims, error) {
	if token == "" {
		return nil, oops.Code("AUTH_TOKEN_MISSING").Errorf("no token provided")
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, oops.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithAudience(i.aud),
		jwt.WithIssuer(i.issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, oops.Code("AUTH_TOKEN_EXPIRED").
				With("purpose", string(purpose)).
				Wrap(err)
		}
		return nil, oops.Code("AUTH_INVALID_TOKEN").
			With("purpose", string(purpose)).
			Wrap(err)
	}
	if !parsed.Valid {
		return nil, oops.Code("AUTH_INVALID_TOKEN").Errorf("invalid token")
	}
	if claims.Purpose != purpose {
		return nil, oops.Code("AUTH_INVALID_TOKEN").
			With("expected", string(purpose)).
			With("actual", string(claims.Purpose)).
			Errorf("token purpose mismatch")
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}

// UserID parses the subject claim.
func (c *Claims) UserID() (ulid.ULID, error) {
	id, err := ulid.Parse(c.Subject)
	if err != nil {
		return ulid.ULID{}, oops.Code("AUTH_INVALID_TOKEN").
			With("subject", c.Subject).
			Wrap(err)
	}
	return id, nil
}
