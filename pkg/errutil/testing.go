// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package errutil

import (
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestingT is satisfied by *testing.T and by ginkgo's GinkgoT().
type TestingT interface {
	require.TestingT
	Helper()
}

func requireOops(t TestingT, err error) oops.OopsError {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T: %v", err, err)
	return oopsErr
}

// AssertErrorCode asserts that err is an oops error whose code is code.
func AssertErrorCode(t TestingT, err error, code string) {
	t.Helper()
	assert.Equal(t, code, requireOops(t, err).Code(), "error: %v", err)
}

// AssertErrorContext asserts that err carries key=value in its oops context.
func AssertErrorContext(t TestingT, err error, key string, value any) {
	t.Helper()
	ctx := requireOops(t, err).Context()
	if assert.Contains(t, ctx, key) {
		assert.Equal(t, value, ctx[key])
	}
}
