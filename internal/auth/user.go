// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package auth

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Full name validation constraints.
const (
	MinFullNameLength = 1
	MaxFullNameLength = 100
)

// MaxEmailLength matches the users.email column width.
const MaxEmailLength = 254

var fieldValidator = validator.New(validator.WithRequiredStructEnabled())

// User represents a registered account.
type User struct {
	ID             ulid.ULID
	FullName       string
	Email          string
	PasswordHash   string
	Verified       bool
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewUser creates an unverified User after validating its inputs.
// The email is normalized with NormalizeEmail.
func NewUser(fullName, email, passwordHash string) (*User, error) {
	fullName = strings.TrimSpace(fullName)
	email = NormalizeEmail(email)

	if err := ValidateFullName(fullName); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("USER_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &User{
		ID:           ulid.Make(),
		FullName:     fullName,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// IsLocked returns true if the user is currently locked out.
func (u *User) IsLocked() bool {
	return IsLockedOut(u.LockedUntil)
}

// RecordFailure increments the failure counter and sets lockout if threshold reached.
func (u *User) RecordFailure() {
	u.FailedAttempts++
	u.LockedUntil = ComputeLockoutTime(u.FailedAttempts)
	u.UpdatedAt = time.Now()
}

// RecordSuccess resets failure counter and lockout.
func (u *User) RecordSuccess() {
	u.FailedAttempts, u.LockedUntil = ResetOnSuccess()
	u.UpdatedAt = time.Now()
}

// MarkVerified moves the user to the verified state.
// Returns false if the user was already verified.
func (u *User) MarkVerified() bool {
	if u.Verified {
		return false
	}
	u.Verified = true
	u.UpdatedAt = time.Now()
	return true
}

// NormalizeEmail trims surrounding whitespace and lower-cases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateFullName checks the display name length in runes.
func ValidateFullName(fullName string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(fullName))
	if n < MinFullNameLength {
		return oops.Code("AUTH_INVALID_INPUT").
			With("field", "full_name").
			Errorf("full name cannot be empty")
	}
	if n > MaxFullNameLength {
		return oops.Code("AUTH_INVALID_INPUT").
			With("field", "full_name").
			With("max", MaxFullNameLength).
			Errorf("full name must be at most %d characters", MaxFullNameLength)
	}
	return nil
}

// ValidateEmail checks that email is a syntactically valid address.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("AUTH_INVALID_INPUT").
			With("field", "email").
			Errorf("email cannot be empty")
	}
	if len(email) > MaxEmailLength {
		return oops.Code("AUTH_INVALID_INPUT").
			With("field", "email").
			With("max", MaxEmailLength).
			Errorf("email must be at most %d characters", MaxEmailLength)
	}
	if err := fieldValidator.Var(email, "email"); err != nil {
		return oops.Code("AUTH_INVALID_INPUT").
			With("field", "email").
			Errorf("email is not a valid address")
	}
	return nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user.
	// Returns ErrAlreadyExists if the email is already registered.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by email (case-insensitive).
	// Returns ErrNotFound if no user has the given email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// RecordLoginFailure increments the failure counter in place and locks
	// the account once LockoutThreshold consecutive failures are reached.
	RecordLoginFailure(ctx context.Context, id ulid.ULID) error

	// RecordLoginSuccess clears the failure counter and any lockout.
	RecordLoginSuccess(ctx context.Context, id ulid.ULID) error

	// UpgradePasswordHash swaps oldHash for newHash. It reports false without
	// error when the stored hash no longer equals oldHash.
	UpgradePasswordHash(ctx context.Context, id ulid.ULID, oldHash, newHash string) (bool, error)

	// UpdatePassword replaces the password hash and clears any lockout.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error

	// MarkVerified sets the verified flag for a user.
	MarkVerified(ctx context.Context, id ulid.ULID) error

	// Delete removes a user.
	Delete(ctx context.Context, id ulid.ULID) error
}
