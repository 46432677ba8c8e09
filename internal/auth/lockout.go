// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package auth

import (
	"time"
)

// Account lockout configuration.
const (
	// LockoutDuration is the time a user is locked out after too many failures.
	LockoutDuration = 15 * time.Minute

	// LockoutThreshold is the number of consecutive failures that triggers a lockout.
	LockoutThreshold = 7
)

// IsLockedOut returns true if the lockout time is in the future.
func IsLockedOut(lockedUntil *time.Time) bool {
	return lockedUntil != nil && lockedUntil.After(time.Now())
}

// LockoutRemaining returns how long until the lockout expires, or zero.
func LockoutRemaining(lockedUntil *time.Time) time.Duration {
	if !IsLockedOut(lockedUntil) {
		return 0
	}
	return time.Until(*lockedUntil)
}

// ComputeLockoutTime returns the lockout timestamp for the given failure count.
// Returns nil if failures < LockoutThreshold.
func ComputeLockoutTime(failures int) *time.Time {
	if failures < LockoutThreshold {
		return nil
	}
	lockout := time.Now().Add(LockoutDuration)
	return &lockout
}

// ResetOnSuccess returns the values to set after a successful login.
// Returns 0 for failed_attempts and nil for locked_until.
func ResetOnSuccess() (int, *time.Time) {
	return 0, nil
}
