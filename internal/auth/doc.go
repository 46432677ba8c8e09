// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

// Package auth implements the credential and token lifecycle for Ping.
//
// # Domain Types
//
// Domain types (User, Session, PasswordReset) should be created
// using their respective constructors:
//   - NewUser - creates an unverified User with a normalized email
//   - NewSession - creates a refresh Session with validated user and expiry
//   - NewPasswordReset - creates a PasswordReset with validated user and expiry
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Account States
//
// A user is created unverified. VerifyEmail moves it to verified and is
// idempotent afterwards. Repeated login failures lock the account for
// LockoutDuration, and a password reset clears the lock.
//
// # Services
//
// Service types coordinate domain operations:
//   - Service - registration, login, email verification, refresh, logout
//   - PasswordResetService - password reset flow
//   - Janitor - periodic removal of expired sessions and reset tokens
//
// Services are created with New*Service constructors that validate dependencies.
package auth
