// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

// Package mocks provides testify mocks for the profile package interfaces.
package mocks

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/pinghq/ping-auth/internal/profile"
)

// MockRepository is a mock type for the profile.Repository type.
type MockRepository struct {
	mock.Mock
}

var _ profile.Repository = (*MockRepository)(nil)

// Create provides a mock function with given fields: ctx, p
func (_m *MockRepository) Create(ctx context.Context, p *profile.Profile) error {
	ret := _m.Called(ctx, p)
	return ret.Error(0)
}

// GetByUser provides a mock function with given fields: ctx, userID
func (_m *MockRepository) GetByUser(ctx context.Context, userID ulid.ULID) (*profile.Profile, error) {
	ret := _m.Called(ctx, userID)
	var r0 *profile.Profile
	if v := ret.Get(0); v != nil {
		r0 = v.(*profile.Profile)
	}
	return r0, ret.Error(1)
}

// Update provides a mock function with given fields: ctx, p
func (_m *MockRepository) Update(ctx context.Context, p *profile.Profile) error {
	ret := _m.Called(ctx, p)
	return ret.Error(0)
}

// DeleteByUser provides a mock function with given fields: ctx, userID
func (_m *MockRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) error {
	ret := _m.Called(ctx, userID)
	return ret.Error(0)
}

// NewMockRepository creates a new instance of MockRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockRepository {
	m := &MockRepository{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
