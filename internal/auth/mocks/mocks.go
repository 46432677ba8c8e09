// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

// Package mocks provides testify mocks for the auth package interfaces.
package mocks

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/pinghq/ping-auth/internal/auth"
)

type cleanupT interface {
	mock.TestingT
	Cleanup(func())
}

// MockUserRepository is a mock type for the auth.UserRepository type.
type MockUserRepository struct {
	mock.Mock
}

var _ auth.UserRepository = (*MockUserRepository)(nil)

// Create provides a mock function with given fields: ctx, user
func (_m *MockUserRepository) Create(ctx context.Context, user *auth.User) error {
	ret := _m.Called(ctx, user)
	return ret.Error(0)
}

// GetByID provides a mock function with given fields: ctx, id
func (_m *MockUserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	ret := _m.Called(ctx, id)
	var r0 *auth.User
	if v := ret.Get(0); v != nil {
		r0 = v.(*auth.User)
	}
	return r0, ret.Error(1)
}

// GetByEmail provides a mock function with given fields: ctx, email
func (_m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	ret := _m.Called(ctx, email)
	var r0 *auth.User
	if v := ret.Get(0); v != nil {
		r0 = v.(*auth.User)
	}
	return r0, ret.Error(1)
}

// RecordLoginFailure provides a mock function with given fields: ctx, id
func (_m *MockUserRepository) RecordLoginFailure(ctx context.Context, id ulid.ULID) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

// RecordLoginSuccess provides a mock function with given fields: ctx, id
func (_m *MockUserRepository) RecordLoginSuccess(ctx context.Context, id ulid.ULID) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

// UpgradePasswordHash provides a mock function with given fields: ctx, id, oldHash, newHash
func (_m *MockUserRepository) UpgradePasswordHash(ctx context.Context, id ulid.ULID, oldHash, newHash string) (bool, error) {
	ret := _m.Called(ctx, id, oldHash, newHash)
	return ret.Bool(0), ret.Error(1)
}

// UpdatePassword provides a mock function with given fields: ctx, id, passwordHash
func (_m *MockUserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	ret := _m.Called(ctx, id, passwordHash)
	return ret.Error(0)
}

// MarkVerified provides a mock function with given fields: ctx, id
func (_m *MockUserRepository) MarkVerified(ctx context.Context, id ulid.ULID) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

// Delete provides a mock function with given fields: ctx, id
func (_m *MockUserRepository) Delete(ctx context.Context, id ulid.ULID) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

// NewMockUserRepository creates a new instance of MockUserRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockUserRepository(t cleanupT) *MockUserRepository {
	m := &MockUserRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockSessionRepository is a mock type for the auth.SessionRepository type.
type MockSessionRepository struct {
	mock.Mock
}

var _ auth.SessionRepository = (*MockSessionRepository)(nil)

// Create provides a mock function with given fields: ctx, session
func (_m *MockSessionRepository) Create(ctx context.Context, session *auth.Session) error {
	ret := _m.Called(ctx, session)
	return ret.Error(0)
}

// GetByID provides a mock function with given fields: ctx, id
func (_m *MockSessionRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Session, error) {
	ret := _m.Called(ctx, id)
	var r0 *auth.Session
	if v := ret.Get(0); v != nil {
		r0 = v.(*auth.Session)
	}
	return r0, ret.Error(1)
}

// GetByUser provides a mock function with given fields: ctx, userID
func (_m *MockSessionRepository) GetByUser(ctx context.Context, userID ulid.ULID) ([]*auth.Session, error) {
	ret := _m.Called(ctx, userID)
	var r0 []*auth.Session
	if v := ret.Get(0); v != nil {
		r0 = v.([]*auth.Session)
	}
	return r0, ret.Error(1)
}

// Delete provides a mock function with given fields: ctx, id
func (_m *MockSessionRepository) Delete(ctx context.Context, id ulid.ULID) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

// DeleteByUser provides a mock function with given fields: ctx, userID
func (_m *MockSessionRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) (int64, error) {
	ret := _m.Called(ctx, userID)
	return ret.Get(0).(int64), ret.Error(1)
}

// DeleteExpired provides a mock function with given fields: ctx
func (_m *MockSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	ret := _m.Called(ctx)
	return ret.Get(0).(int64), ret.Error(1)
}

// NewMockSessionRepository creates a new instance of MockSessionRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockSessionRepository(t cleanupT) *MockSessionRepository {
	m := &MockSessionRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockPasswordResetRepository is a mock type for the auth.PasswordResetRepository type.
type MockPasswordResetRepository struct {
	mock.Mock
}

var _ auth.PasswordResetRepository = (*MockPasswordResetRepository)(nil)

// Create provides a mock function with given fields: ctx, reset
func (_m *MockPasswordResetRepository) Create(ctx context.Context, reset *auth.PasswordReset) error {
	ret := _m.Called(ctx, reset)
	return ret.Error(0)
}

// GetByTokenHash provides a mock function with given fields: ctx, tokenHash
func (_m *MockPasswordResetRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.PasswordReset, error) {
	ret := _m.Called(ctx, tokenHash)
	var r0 *auth.PasswordReset
	if v := ret.Get(0); v != nil {
		r0 = v.(*auth.PasswordReset)
	}
	return r0, ret.Error(1)
}

// DeleteByUser provides a mock function with given fields: ctx, userID
func (_m *MockPasswordResetRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) error {
	ret := _m.Called(ctx, userID)
	return ret.Error(0)
}

// DeleteExpired provides a mock function with given fields: ctx
func (_m *MockPasswordResetRepository) DeleteExpired(ctx context.Context) (int64, error) {
	ret := _m.Called(ctx)
	return ret.Get(0).(int64), ret.Error(1)
}

// NewMockPasswordResetRepository creates a new instance of MockPasswordResetRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockPasswordResetRepository(t cleanupT) *MockPasswordResetRepository {
	m := &MockPasswordResetRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockPasswordHasher is a mock type for the auth.PasswordHasher type.
type MockPasswordHasher struct {
	mock.Mock
}

var _ auth.PasswordHasher = (*MockPasswordHasher)(nil)

// Hash provides a mock function with given fields: password
func (_m *MockPasswordHasher) Hash(password string) (string, error) {
	ret := _m.Called(password)
	return ret.String(0), ret.Error(1)
}

// Verify provides a mock function with given fields: password, hash
func (_m *MockPasswordHasher) Verify(password, hash string) (bool, error) {
	ret := _m.Called(password, hash)
	return ret.Bool(0), ret.Error(1)
}

// NeedsUpgrade provides a mock function with given fields: hash
func (_m *MockPasswordHasher) NeedsUpgrade(hash string) bool {
	ret := _m.Called(hash)
	return ret.Bool(0)
}

// NewMockPasswordHasher creates a new instance of MockPasswordHasher. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockPasswordHasher(t cleanupT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockNotifier is a mock type for the auth.Notifier type.
type MockNotifier struct {
	mock.Mock
}

var _ auth.Notifier = (*MockNotifier)(nil)

// SendVerification provides a mock function with given fields: ctx, user, token
func (_m *MockNotifier) SendVerification(ctx context.Context, user *auth.User, token string) error {
	ret := _m.Called(ctx, user, token)
	return ret.Error(0)
}

// SendPasswordReset provides a mock function with given fields: ctx, user, token
func (_m *MockNotifier) SendPasswordReset(ctx context.Context, user *auth.User, token string) error {
	ret := _m.Called(ctx, user, token)
	return ret.Error(0)
}

// NewMockNotifier creates a new instance of MockNotifier. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockNotifier(t cleanupT) *MockNotifier {
	m := &MockNotifier{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
