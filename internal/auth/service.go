// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/pinghq/ping-auth/pkg/errutil"
)

// Notifier delivers account emails carrying a token link.
type Notifier interface {
	SendVerification(ctx context.Context, user *User, token string) error
	SendPasswordReset(ctx context.Context, user *User, token string) error
}

// EventRecorder counts authentication outcomes.
type EventRecorder interface {
	RecordAuthEvent(event, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) RecordAuthEvent(string, string) {}

// Auth event outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeLocked  = "locked"
	OutcomeReused  = "reused"
)

// AuthResult is returned by operations that start or renew a session.
type AuthResult struct {
	User         *User
	AccessToken  *IssuedToken
	RefreshToken *IssuedToken
	Session      *Session

	// VerificationSent is false when registration succeeded but the
	// verification email could not be delivered.
	VerificationSent bool
}

// RegisterInput holds the fields accepted by Register.
type RegisterInput struct {
	FullName  string
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

// Service provides authentication operations.
type Service struct {
	users           UserRepository
	sessions        SessionRepository
	hasher          PasswordHasher
	tokens          *TokenIssuer
	notifier        Notifier
	logger          *slog.Logger
	events          EventRecorder
	requireVerified bool
}

// ServiceOption configures optional Service behavior.
type ServiceOption func(*Service)

// WithLogger sets the logger used for best-effort failures.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithEventRecorder sets the recorder for auth outcome metrics.
func WithEventRecorder(r EventRecorder) ServiceOption {
	return func(s *Service) { s.events = r }
}

// WithRequireVerifiedEmail rejects logins from unverified accounts.
func WithRequireVerifiedEmail(require bool) ServiceOption {
	return func(s *Service) { s.requireVerified = require }
}

// NewAuthService creates a new Service.
func NewAuthService(
	users UserRepository,
	sessions SessionRepository,
	hasher PasswordHasher,
	tokens *TokenIssuer,
	notifier Notifier,
	opts ...ServiceOption,
) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("sessions repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("token issuer is required")
	}
	if notifier == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("notifier is required")
	}

	s := &Service{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		tokens:   tokens,
		notifier: notifier,
		logger:   slog.Default(),
		events:   noopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("logger cannot be nil")
	}
	if s.events == nil {
		s.events = noopRecorder{}
	}
	return s, nil
}

// dummyPasswordHash is used when a user doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Register creates an unverified account, opens a session and sends the
// verification email. A failed email send is logged and reported through
// AuthResult.VerificationSent instead of failing the registration.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	fullName := strings.TrimSpace(in.FullName)
	email := NormalizeEmail(in.Email)

	if fullName == "" || email == "" || in.Password == "" {
		return nil, oops.Code("AUTH_INVALID_INPUT").
			Errorf("missing required fields: full_name, email, and password are required")
	}
	if err := ValidateFullName(fullName); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		s.events.RecordAuthEvent("register", OutcomeFailure)
		return nil, emailTakenError()
	case !errors.Is(err, ErrNotFound):
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(fullName, email, hash)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			s.events.RecordAuthEvent("register", OutcomeFailure)
			return nil, emailTakenError()
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	result, err := s.openSession(ctx, user, in.UserAgent, in.IPAddress)
	if err != nil {
		return nil, err
	}

	if err := s.sendVerification(ctx, user); err != nil {
		errutil.LogErrorContext(ctx, s.logger, "failed to send verification email", err)
	} else {
		result.VerificationSent = true
	}

	s.events.RecordAuthEvent("register", OutcomeSuccess)
	return result, nil
}

func emailTakenError() error {
	return oops.Code("AUTH_EMAIL_TAKEN").Errorf("user already exists")
}

// Login authenticates a user by email and password and opens a session.
// Uses constant-time operations to prevent timing-based email enumeration.
func (s *Service) Login(ctx context.Context, email, password, userAgent, ipAddress string) (*AuthResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, oops.Code("AUTH_INVALID_INPUT").
			Errorf("missing required fields: email, and password are required")
	}

	user, lookupErr := s.users.GetByEmail(ctx, email)

	var targetHash string
	var userExists bool

	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by email").
				Wrap(lookupErr)
		}
		targetHash = dummyPasswordHash
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	// Always verify so unknown emails take as long as wrong passwords.
	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !userExists {
			s.events.RecordAuthEvent("login", OutcomeFailure)
			return nil, invalidCredentialsError()
		}
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !userExists {
		s.events.RecordAuthEvent("login", OutcomeFailure)
		return nil, invalidCredentialsError()
	}

	// A locked account answers the same for any password, checked after
	// verification to keep timing constant.
	if user.IsLocked() {
		s.events.RecordAuthEvent("login", OutcomeLocked)
		remaining := LockoutRemaining(user.LockedUntil)
		return nil, oops.Code("AUTH_ACCOUNT_LOCKED").
			With("locked_until", user.LockedUntil).
			With("retry_after_seconds", int(math.Ceil(remaining.Seconds()))).
			Errorf("account is temporarily locked")
	}

	if !valid {
		if err := s.users.RecordLoginFailure(ctx, user.ID); err != nil {
			s.logger.WarnContext(ctx, "failed to record login failure",
				"user_id", user.ID.String(),
				"error", err)
		} else {
			user.RecordFailure()
			if user.IsLocked() {
				s.logger.InfoContext(ctx, "account locked after repeated login failures",
					"user_id", user.ID.String(),
					"locked_until", user.LockedUntil)
			}
		}
		s.events.RecordAuthEvent("login", OutcomeFailure)
		return nil, invalidCredentialsError()
	}

	if s.requireVerified && !user.Verified {
		s.events.RecordAuthEvent("login", OutcomeFailure)
		return nil, oops.Code("AUTH_EMAIL_NOT_VERIFIED").Errorf("email address has not been verified")
	}

	// Login succeeds even if clearing the counter fails.
	if err := s.users.RecordLoginSuccess(ctx, user.ID); err != nil {
		s.logger.WarnContext(ctx, "failed to clear login failures",
			"user_id", user.ID.String(),
			"error", err)
	}
	user.RecordSuccess()

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradePasswordHash(ctx, user, password)
	}

	result, err := s.openSession(ctx, user, userAgent, ipAddress)
	if err != nil {
		return nil, err
	}
	s.events.RecordAuthEvent("login", OutcomeSuccess)
	return result, nil
}

// upgradePasswordHash rehashes with current parameters. The stored hash is
// only replaced if no reset or change landed since it was read.
func (s *Service) upgradePasswordHash(ctx context.Context, user *User, password string) {
	newHash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to upgrade password hash",
			"user_id", user.ID.String(),
			"error", err)
		return
	}
	upgraded, err := s.users.UpgradePasswordHash(ctx, user.ID, user.PasswordHash, newHash)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to store upgraded password hash",
			"user_id", user.ID.String(),
			"error", err)
		return
	}
	if upgraded {
		user.PasswordHash = newHash
	}
}

func invalidCredentialsError() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid credentials")
}

// VerifyEmail consumes an email verification token and marks the user verified.
// Verifying an already verified account succeeds without changes.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*User, error) {
	claims, err := s.tokens.Verify(token, PurposeEmailVerification)
	if err != nil {
		s.events.RecordAuthEvent("verify_email", OutcomeFailure)
		return nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.events.RecordAuthEvent("verify_email", OutcomeFailure)
			return nil, oops.Code("AUTH_INVALID_TOKEN").
				With("user_id", userID.String()).
				Errorf("account no longer exists")
		}
		return nil, oops.Code("AUTH_VERIFY_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}

	if !user.MarkVerified() {
		return user, nil
	}

	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return nil, oops.Code("AUTH_VERIFY_FAILED").
			With("operation", "mark verified").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	s.events.RecordAuthEvent("verify_email", OutcomeSuccess)
	return user, nil
}

// ResendVerification sends a new verification email if the address belongs
// to an unverified account. Unknown or verified addresses succeed silently
// to prevent email enumeration.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return oops.Code("AUTH_INVALID_INPUT").Errorf("email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("AUTH_RESEND_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}
	if user.Verified {
		return nil
	}

	if err := s.sendVerification(ctx, user); err != nil {
		return oops.Code("AUTH_RESEND_FAILED").
			With("operation", "send verification").
			Wrap(err)
	}
	return nil
}

func (s *Service) sendVerification(ctx context.Context, user *User) error {
	issued, err := s.tokens.Issue(user.ID, PurposeEmailVerification, "")
	if err != nil {
		return err
	}
	return s.notifier.SendVerification(ctx, user, issued.Token)
}

// Refresh rotates a refresh token: the presented session is deleted and a
// new access and refresh pair is issued. A correctly signed token whose
// session no longer exists has already been used, so every session of
// that user is revoked.
func (s *Service) Refresh(ctx context.Context, refreshToken, userAgent, ipAddress string) (*AuthResult, error) {
	claims, err := s.tokens.Verify(refreshToken, PurposeRefresh)
	if err != nil {
		s.events.RecordAuthEvent("refresh", OutcomeFailure)
		return nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	sessionID, err := ulid.Parse(claims.ID)
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_TOKEN").
			With("jti", claims.ID).
			Errorf("refresh token has no session")
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, s.revokeOnReuse(ctx, userID, sessionID)
		}
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "get session").
			Wrap(err)
	}

	if session.UserID != userID || !VerifyTokenHash(refreshToken, session.TokenHash) {
		s.events.RecordAuthEvent("refresh", OutcomeFailure)
		return nil, oops.Code("AUTH_INVALID_TOKEN").
			With("session_id", sessionID.String()).
			Errorf("refresh token does not match session")
	}
	if session.IsExpired() {
		s.events.RecordAuthEvent("refresh", OutcomeFailure)
		return nil, oops.Code("AUTH_TOKEN_EXPIRED").
			With("session_id", sessionID.String()).
			Errorf("session has expired")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.events.RecordAuthEvent("refresh", OutcomeFailure)
			return nil, oops.Code("AUTH_INVALID_TOKEN").
				With("user_id", userID.String()).
				Errorf("account no longer exists")
		}
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "get user").
			Wrap(err)
	}

	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			// Lost a race with a concurrent refresh of the same token.
			return nil, s.revokeOnReuse(ctx, userID, sessionID)
		}
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}

	result, err := s.openSession(ctx, user, userAgent, ipAddress)
	if err != nil {
		return nil, err
	}
	s.events.RecordAuthEvent("refresh", OutcomeSuccess)
	return result, nil
}

func (s *Service) revokeOnReuse(ctx context.Context, userID, sessionID ulid.ULID) error {
	s.events.RecordAuthEvent("refresh", OutcomeReused)
	revoked, err := s.sessions.DeleteByUser(ctx, userID)
	if err != nil {
		errutil.LogErrorContext(ctx, s.logger, "failed to revoke sessions after refresh token reuse", err)
	}
	s.logger.WarnContext(ctx, "refresh token reuse detected",
		"user_id", userID.String(),
		"session_id", sessionID.String(),
		"revoked_sessions", revoked)
	return oops.Code("AUTH_TOKEN_REUSED").
		With("session_id", sessionID.String()).
		Errorf("refresh token has already been used")
}

// Logout ends the session behind a refresh token. Logging out an already
// ended or expired session succeeds.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.Verify(refreshToken, PurposeRefresh)
	if err != nil {
		if errutil.HasCode(err, "AUTH_TOKEN_EXPIRED") {
			return nil
		}
		return err
	}
	sessionID, err := ulid.Parse(claims.ID)
	if err != nil {
		return oops.Code("AUTH_INVALID_TOKEN").
			With("jti", claims.ID).
			Errorf("refresh token has no session")
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, ErrNotFound) {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "delete session").
			With("session_id", sessionID.String()).
			Wrap(err)
	}
	s.events.RecordAuthEvent("logout", OutcomeSuccess)
	return nil
}

// LogoutAll ends every session of a user and returns how many were removed.
func (s *Service) LogoutAll(ctx context.Context, userID ulid.ULID) (int64, error) {
	n, err := s.sessions.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "delete sessions by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	s.events.RecordAuthEvent("logout_all", OutcomeSuccess)
	return n, nil
}

// Authenticate validates an access token and loads its user.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*User, error) {
	claims, err := s.tokens.Verify(accessToken, PurposeAccess)
	if err != nil {
		return nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTH_UNAUTHORIZED").
				With("user_id", userID.String()).
				Errorf("unauthorized")
		}
		return nil, oops.Code("AUTH_AUTHENTICATE_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}
	return user, nil
}

// ChangePassword replaces the password of an authenticated user after
// checking the current one. All existing sessions are revoked and a fresh
// session is returned for the caller.
func (s *Service) ChangePassword(ctx context.Context, userID ulid.ULID, current, next, userAgent, ipAddress string) (*AuthResult, error) {
	if current == "" || next == "" {
		return nil, oops.Code("AUTH_INVALID_INPUT").
			Errorf("missing required fields: current_password and new_password are required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTH_UNAUTHORIZED").Errorf("unauthorized")
		}
		return nil, oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}

	valid, err := s.hasher.Verify(current, user.PasswordHash)
	if err != nil {
		return nil, oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "verify password").
			Wrap(err)
	}
	if !valid {
		s.events.RecordAuthEvent("change_password", OutcomeFailure)
		return nil, invalidCredentialsError()
	}

	if err := ValidatePassword(next); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return nil, oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "update password").
			Wrap(err)
	}
	user.PasswordHash = hash
	user.RecordSuccess()

	if _, err := s.sessions.DeleteByUser(ctx, user.ID); err != nil {
		return nil, oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "revoke sessions").
			Wrap(err)
	}

	result, err := s.openSession(ctx, user, userAgent, ipAddress)
	if err != nil {
		return nil, err
	}
	s.events.RecordAuthEvent("change_password", OutcomeSuccess)
	return result, nil
}

// openSession issues an access and refresh pair and persists the refresh session.
func (s *Service) openSession(ctx context.Context, user *User, userAgent, ipAddress string) (*AuthResult, error) {
	sessionID := ulid.Make()

	refresh, err := s.tokens.Issue(user.ID, PurposeRefresh, sessionID.String())
	if err != nil {
		return nil, oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "issue refresh token").
			Wrap(err)
	}

	session, err := NewSession(sessionID, user.ID, HashToken(refresh.Token), userAgent, ipAddress, refresh.ExpiresAt)
	if err != nil {
		return nil, oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "create session").
			Wrap(err)
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "persist session").
			Wrap(err)
	}

	access, err := s.tokens.Issue(user.ID, PurposeAccess, "")
	if err != nil {
		return nil, oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "issue access token").
			Wrap(err)
	}

	return &AuthResult{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
		Session:      session,
	}, nil
}

// ListSessions returns the unexpired sessions of a user, newest first.
func (s *Service) ListSessions(ctx context.Context, userID ulid.ULID) ([]*Session, error) {
	sessions, err := s.sessions.GetByUser(ctx, userID)
	if err != nil {
		return nil, oops.Code("AUTH_LIST_SESSIONS_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return sessions, nil
}
