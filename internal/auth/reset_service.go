// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/pinghq/ping-auth/pkg/errutil"
)

// PasswordResetService handles password reset operations.
type PasswordResetService struct {
	userRepo    UserRepository
	resetRepo   PasswordResetRepository
	sessionRepo SessionRepository
	hasher      PasswordHasher
	notifier    Notifier
	logger      *slog.Logger
	events      EventRecorder
}

// NewPasswordResetService creates a new PasswordResetService.
func NewPasswordResetService(
	userRepo UserRepository,
	resetRepo PasswordResetRepository,
	sessionRepo SessionRepository,
	hasher PasswordHasher,
	notifier Notifier,
	opts ...ServiceOption,
) (*PasswordResetService, error) {
	if userRepo == nil {
		return nil, oops.Code("RESET_INVALID_CONFIG").Errorf("users repository is required")
	}
	if resetRepo == nil {
		return nil, oops.Code("RESET_INVALID_CONFIG").Errorf("reset repository is required")
	}
	if sessionRepo == nil {
		return nil, oops.Code("RESET_INVALID_CONFIG").Errorf("sessions repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("RESET_INVALID_CONFIG").Errorf("password hasher is required")
	}
	if notifier == nil {
		return nil, oops.Code("RESET_INVALID_CONFIG").Errorf("notifier is required")
	}

	// Options are shared with Service; apply them to a scratch value.
	cfg := &Service{logger: slog.Default(), events: noopRecorder{}}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		return nil, oops.Code("RESET_INVALID_CONFIG").Errorf("logger cannot be nil")
	}
	if cfg.events == nil {
		cfg.events = noopRecorder{}
	}

	return &PasswordResetService{
		userRepo:    userRepo,
		resetRepo:   resetRepo,
		sessionRepo: sessionRepo,
		hasher:      hasher,
		notifier:    notifier,
		logger:      cfg.logger,
		events:      cfg.events,
	}, nil
}

// RequestReset starts a password reset for the account with the given email.
// If the user exists, older tokens are discarded, a new token is stored
// and the reset email is sent.
// If the user doesn't exist, returns success anyway to prevent email enumeration.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return oops.Code("RESET_EMAIL_EMPTY").Errorf("email is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.events.RecordAuthEvent("password_reset_request", OutcomeFailure)
			return nil
		}
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "GetByEmail").
			Wrap(err)
	}

	// Only the newest link stays valid.
	if err := s.resetRepo.DeleteByUser(ctx, user.ID); err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "DeleteByUser").
			Wrap(err)
	}

	token, hash, err := GenerateResetToken()
	if err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "GenerateResetToken").
			Wrap(err)
	}

	reset, err := NewPasswordReset(user.ID, hash, time.Now().Add(ResetTokenExpiry))
	if err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "NewPasswordReset").
			Wrap(err)
	}

	if err := s.resetRepo.Create(ctx, reset); err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "Create").
			Wrap(err)
	}

	// A mail failure answers like an unknown email so outages do not
	// reveal which addresses are registered.
	if err := s.notifier.SendPasswordReset(ctx, user, token); err != nil {
		errutil.LogErrorContext(ctx, s.logger, "failed to send password reset email",
			oops.Code("RESET_EMAIL_FAILED").
				With("operation", "SendPasswordReset").
				With("user_id", user.ID.String()).
				Wrap(err))
		s.events.RecordAuthEvent("password_reset_request", OutcomeFailure)
		return nil
	}

	s.events.RecordAuthEvent("password_reset_request", OutcomeSuccess)
	return nil
}

// ValidateToken validates a reset token and returns the associated user ID.
// Returns an error if the token is invalid, expired, or not found.
func (s *PasswordResetService) ValidateToken(ctx context.Context, token string) (ulid.ULID, error) {
	if token == "" {
		return ulid.ULID{}, oops.Code("RESET_TOKEN_EMPTY").Errorf("reset token cannot be empty")
	}

	reset, err := s.resetRepo.GetByTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ulid.ULID{}, oops.Code("RESET_TOKEN_INVALID").Errorf("reset token not found")
		}
		return ulid.ULID{}, oops.Code("RESET_VALIDATE_FAILED").
			With("operation", "GetByTokenHash").
			Wrap(err)
	}

	if reset.IsExpired() {
		return ulid.ULID{}, oops.Code("RESET_TOKEN_EXPIRED").Errorf("reset token has expired")
	}

	return reset.UserID, nil
}

// ResetPassword sets a new password using a valid reset token.
// The new password must satisfy ValidatePassword. On success the lockout is
// cleared, every reset token of the user is deleted and every refresh
// session is revoked.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return oops.Code("RESET_PASSWORD_EMPTY").Errorf("new password cannot be empty")
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	userID, err := s.ValidateToken(ctx, token)
	if err != nil {
		s.events.RecordAuthEvent("password_reset", OutcomeFailure)
		return err
	}

	hashedPassword, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "Hash").
			Wrap(err)
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, hashedPassword); err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "UpdatePassword").
			Wrap(err)
	}

	// The password is already updated; cleanup failures are logged only.
	if err := s.resetRepo.DeleteByUser(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "failed to delete reset tokens after password reset",
			"user_id", userID.String(),
			"error", err)
	}
	if _, err := s.sessionRepo.DeleteByUser(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "failed to revoke sessions after password reset",
			"user_id", userID.String(),
			"error", err)
	}

	s.events.RecordAuthEvent("password_reset", OutcomeSuccess)
	return nil
}
