// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

// Package mocks provides testify mocks for the httpapi service interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/pinghq/ping-auth/internal/auth"
	"github.com/pinghq/ping-auth/internal/httpapi"
	"github.com/pinghq/ping-auth/internal/profile"
)

type cleanupT interface {
	mock.TestingT
	Cleanup(func())
}

// MockAuthService is a mock type for the httpapi.AuthService type.
type MockAuthService struct {
	mock.Mock
}

var _ httpapi.AuthService = (*MockAuthService)(nil)

func authResult(ret mock.Arguments) (*auth.AuthResult, error) {
	var r0 *auth.AuthResult
	if v := ret.Get(0); v != nil {
		r0 = v.(*auth.AuthResult)
	}
	return r0, ret.Error(1)
}

func user(ret mock.Arguments) (*auth.User, error) {
	var r0 *auth.User
	if v := ret.Get(0); v != nil {
		r0 = v.(*auth.User)
	}
	return r0, ret.Error(1)
}

// Authenticate provides a mock function with given fields: ctx, accessToken
func (_m *MockAuthService) Authenticate(ctx context.Context, accessToken string) (*auth.User, error) {
	return user(_m.Called(ctx, accessToken))
}

// Register provides a mock function with given fields: ctx, in
func (_m *MockAuthService) Register(ctx context.Context, in auth.RegisterInput) (*auth.AuthResult, error) {
	return authResult(_m.Called(ctx, in))
}

// Login provides a mock function with given fields: ctx, email, password, userAgent, ipAddress
func (_m *MockAuthService) Login(ctx context.Context, email, password, userAgent, ipAddress string) (*auth.AuthResult, error) {
	return authResult(_m.Called(ctx, email, password, userAgent, ipAddress))
}

// VerifyEmail provides a mock function with given fields: ctx, token
func (_m *MockAuthService) VerifyEmail(ctx context.Context, token string) (*auth.User, error) {
	return user(_m.Called(ctx, token))
}

// ResendVerification provides a mock function with given fields: ctx, email
func (_m *MockAuthService) ResendVerification(ctx context.Context, email string) error {
	return _m.Called(ctx, email).Error(0)
}

// Refresh provides a mock function with given fields: ctx, refreshToken, userAgent, ipAddress
func (_m *MockAuthService) Refresh(ctx context.Context, refreshToken, userAgent, ipAddress string) (*auth.AuthResult, error) {
	return authResult(_m.Called(ctx, refreshToken, userAgent, ipAddress))
}

// Logout provides a mock function with given fields: ctx, refreshToken
func (_m *MockAuthService) Logout(ctx context.Context, refreshToken string) error {
	return _m.Called(ctx, refreshToken).Error(0)
}

// LogoutAll provides a mock function with given fields: ctx, userID
func (_m *MockAuthService) LogoutAll(ctx context.Context, userID ulid.ULID) (int64, error) {
	ret := _m.Called(ctx, userID)
	return ret.Get(0).(int64), ret.Error(1)
}

// ChangePassword provides a mock function with given fields: ctx, userID, current, next, userAgent, ipAddress
func (_m *MockAuthService) ChangePassword(ctx context.Context, userID ulid.ULID, current, next, userAgent, ipAddress string) (*auth.AuthResult, error) {
	return authResult(_m.Called(ctx, userID, current, next, userAgent, ipAddress))
}

// ListSessions provides a mock function with given fields: ctx, userID
func (_m *MockAuthService) ListSessions(ctx context.Context, userID ulid.ULID) ([]*auth.Session, error) {
	ret := _m.Called(ctx, userID)
	var r0 []*auth.Session
	if v := ret.Get(0); v != nil {
		r0 = v.([]*auth.Session)
	}
	return r0, ret.Error(1)
}

// NewMockAuthService creates a new instance of MockAuthService. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockAuthService(t cleanupT) *MockAuthService {
	m := &MockAuthService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockResetService is a mock type for the httpapi.ResetService type.
type MockResetService struct {
	mock.Mock
}

var _ httpapi.ResetService = (*MockResetService)(nil)

// RequestReset provides a mock function with given fields: ctx, email
func (_m *MockResetService) RequestReset(ctx context.Context, email string) error {
	return _m.Called(ctx, email).Error(0)
}

// ValidateToken provides a mock function with given fields: ctx, token
func (_m *MockResetService) ValidateToken(ctx context.Context, token string) (ulid.ULID, error) {
	ret := _m.Called(ctx, token)
	return ret.Get(0).(ulid.ULID), ret.Error(1)
}

// ResetPassword provides a mock function with given fields: ctx, token, newPassword
func (_m *MockResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	return _m.Called(ctx, token, newPassword).Error(0)
}

// NewMockResetService creates a new instance of MockResetService. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockResetService(t cleanupT) *MockResetService {
	m := &MockResetService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockProfileService is a mock type for the httpapi.ProfileService type.
type MockProfileService struct {
	mock.Mock
}

var _ httpapi.ProfileService = (*MockProfileService)(nil)

func profileResult(ret mock.Arguments) (*profile.Profile, error) {
	var r0 *profile.Profile
	if v := ret.Get(0); v != nil {
		r0 = v.(*profile.Profile)
	}
	return r0, ret.Error(1)
}

// Create provides a mock function with given fields: ctx, userID, phoneNumber, dateOfBirth
func (_m *MockProfileService) Create(ctx context.Context, userID ulid.ULID, phoneNumber string, dateOfBirth time.Time) (*profile.Profile, error) {
	return profileResult(_m.Called(ctx, userID, phoneNumber, dateOfBirth))
}

// Get provides a mock function with given fields: ctx, userID
func (_m *MockProfileService) Get(ctx context.Context, userID ulid.ULID) (*profile.View, error) {
	ret := _m.Called(ctx, userID)
	var r0 *profile.View
	if v := ret.Get(0); v != nil {
		r0 = v.(*profile.View)
	}
	return r0, ret.Error(1)
}

// Update provides a mock function with given fields: ctx, userID, changes
func (_m *MockProfileService) Update(ctx context.Context, userID ulid.ULID, changes profile.Changes) (*profile.Profile, error) {
	return profileResult(_m.Called(ctx, userID, changes))
}

// Delete provides a mock function with given fields: ctx, userID
func (_m *MockProfileService) Delete(ctx context.Context, userID ulid.ULID) error {
	return _m.Called(ctx, userID).Error(0)
}

// NewMockProfileService creates a new instance of MockProfileService. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockProfileService(t cleanupT) *MockProfileService {
	m := &MockProfileService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
