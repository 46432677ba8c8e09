// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package auth

import (
	"unicode"

	"github.com/samber/oops"
)

// Password policy bounds. The upper bound is in bytes because bcrypt
// ignores everything past 72 bytes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// ValidatePassword enforces the password strength policy: length bounds,
// and at least one upper-case letter, lower-case letter, digit and symbol.
func ValidatePassword(password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	if len(password) < MinPasswordLength {
		return oops.Code("AUTH_WEAK_PASSWORD").
			With("min", MinPasswordLength).
			Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return oops.Code("AUTH_WEAK_PASSWORD").
			With("max", MaxPasswordLength).
			Errorf("password must be at most %d bytes", MaxPasswordLength)
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}

	var missing []string
	if !upper {
		missing = append(missing, "uppercase letter")
	}
	if !lower {
		missing = append(missing, "lowercase letter")
	}
	if !digit {
		missing = append(missing, "digit")
	}
	if !symbol {
		missing = append(missing, "symbol")
	}
	if len(missing) > 0 {
		return oops.Code("AUTH_WEAK_PASSWORD").
			With("missing", missing).
			Errorf("password must contain at least one uppercase letter, lowercase letter, digit, and symbol")
	}
	return nil
}
