// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package profile

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MaxBioLength matches the profiles_bio_length check constraint.
const MaxBioLength = 500

// MaxAvatarLength bounds the avatar URL.
const MaxAvatarLength = 2048

// DateLayout is the wire format of DateOfBirth.
const DateLayout = time.DateOnly

var fieldValidator = validator.New(validator.WithRequiredStructEnabled())

// Profile is the public part of an account.
type Profile struct {
	ID          ulid.ULID
	UserID      ulid.ULID
	Bio         string
	Avatar      string
	PhoneNumber string
	DateOfBirth time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserSummary is the subset of the owning user shown next to a profile.
type UserSummary struct {
	FullName string
	Email    string
	Verified bool
}

// View is a profile together with its owner.
type View struct {
	Profile *Profile
	User    UserSummary
}

// Changes lists the fields an owner may modify. Nil fields are left alone.
type Changes struct {
	Bio         *string
	Avatar      *string
	PhoneNumber *string
	DateOfBirth *time.Time
}

// IsEmpty reports whether no field is set.
func (c Changes) IsEmpty() bool {
	return c.Bio == nil && c.Avatar == nil && c.PhoneNumber == nil && c.DateOfBirth == nil
}

// NewProfile creates a validated Profile with an empty bio and avatar.
func NewProfile(userID ulid.ULID, phoneNumber string, dateOfBirth time.Time, now time.Time) (*Profile, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("PROFILE_INVALID_INPUT").
			With("field", "user_id").
			Errorf("user ID cannot be zero")
	}
	phoneNumber = strings.TrimSpace(phoneNumber)
	if err := ValidatePhoneNumber(phoneNumber); err != nil {
		return nil, err
	}
	if err := ValidateDateOfBirth(dateOfBirth, now); err != nil {
		return nil, err
	}
	return &Profile{
		ID:          ulid.Make(),
		UserID:      userID,
		PhoneNumber: phoneNumber,
		DateOfBirth: truncateDay(dateOfBirth),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Apply validates changes and writes them to p. p is untouched on error.
func (p *Profile) Apply(c Changes, now time.Time) error {
	next := *p
	if c.Bio != nil {
		bio := strings.TrimSpace(*c.Bio)
		if err := ValidateBio(bio); err != nil {
			return err
		}
		next.Bio = bio
	}
	if c.Avatar != nil {
		avatar := strings.TrimSpace(*c.Avatar)
		if err := ValidateAvatar(avatar); err != nil {
			return err
		}
		next.Avatar = avatar
	}
	if c.PhoneNumber != nil {
		phone := strings.TrimSpace(*c.PhoneNumber)
		if err := ValidatePhoneNumber(phone); err != nil {
			return err
		}
		next.PhoneNumber = phone
	}
	if c.DateOfBirth != nil {
		if err := ValidateDateOfBirth(*c.DateOfBirth, now); err != nil {
			return err
		}
		next.DateOfBirth = truncateDay(*c.DateOfBirth)
	}
	next.UpdatedAt = now
	*p = next
	return nil
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, oops.Code("PROFILE_INVALID_INPUT").
			With("field", "date_of_birth").
			Errorf("date of birth must use the YYYY-MM-DD format")
	}
	return t, nil
}

// ValidatePhoneNumber requires an E.164 number such as +14155550123.
func ValidatePhoneNumber(phone string) error {
	if phone == "" {
		return oops.Code("PROFILE_INVALID_INPUT").
			With("field", "phone_number").
			Errorf("phone number is required")
	}
	if err := fieldValidator.Var(phone, "e164"); err != nil {
		return oops.Code("PROFILE_INVALID_INPUT").
			With("field", "phone_number").
			Errorf("phone number must be in E.164 format")
	}
	return nil
}

// ValidateDateOfBirth requires a date strictly before the day of now.
func ValidateDateOfBirth(dob, now time.Time) error {
	if dob.IsZero() {
		return oops.Code("PROFILE_INVALID_INPUT").
			With("field", "date_of_birth").
			Errorf("date of birth is required")
	}
	if !truncateDay(dob).Before(truncateDay(now)) {
		return oops.Code("PROFILE_INVALID_INPUT").
			With("field", "date_of_birth").
			Errorf("date of birth must be in the past")
	}
	return nil
}

// ValidateBio bounds the bio length in runes.
func ValidateBio(bio string) error {
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return oops.Code("PROFILE_INVALID_INPUT").
			With("field", "bio").
			With("max", MaxBioLength).
			Errorf("bio must be at most %d characters", MaxBioLength)
	}
	return nil
}

// ValidateAvatar accepts an empty value or an http(s) URL.
func ValidateAvatar(avatar string) error {
	if avatar == "" {
		return nil
	}
	if len(avatar) > MaxAvatarLength {
		return oops.Code("PROFILE_INVALID_INPUT").
			With("field", "avatar").
			With("max", MaxAvatarLength).
			Errorf("avatar URL must be at most %d characters", MaxAvatarLength)
	}
	if err := fieldValidator.Var(avatar, "http_url"); err != nil {
		return oops.Code("PROFILE_INVALID_INPUT").
			With("field", "avatar").
			Errorf("avatar must be an http or https URL")
	}
	return nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Repository manages profile persistence. Profiles are keyed by their owner.
type Repository interface {
	// Create stores a new profile.
	// Returns auth.ErrAlreadyExists if the user already has one.
	Create(ctx context.Context, p *Profile) error

	// GetByUser retrieves the profile of a user.
	// Returns auth.ErrNotFound if the user has none.
	GetByUser(ctx context.Context, userID ulid.ULID) (*Profile, error)

	// Update writes the mutable fields of a profile.
	Update(ctx context.Context, p *Profile) error

	// DeleteByUser removes the profile of a user.
	DeleteByUser(ctx context.Context, userID ulid.ULID) error
}
