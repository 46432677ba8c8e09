// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinghq/ping-auth/internal/config"
	"github.com/pinghq/ping-auth/pkg/errutil"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

func TestConfigSchema_Stdout(t *testing.T) {
	out, err := execute(t, "config", "schema")

	require.NoError(t, err)
	assert.Contains(t, out, config.SchemaID)
	assert.Contains(t, out, `"jwt_secret"`)
}

func TestConfigSchema_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemas", "pingauth.schema.json")

	out, err := execute(t, "config", "schema", "--output", path)

	require.NoError(t, err)
	assert.Contains(t, out, "Generated "+path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), config.SchemaID)
}

func TestConfigValidate(t *testing.T) {
	t.Setenv("PINGAUTH_AUTH__JWT_SECRET", testJWTSecret)
	dir := t.TempDir()

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(dir, "ok.yaml")
		require.NoError(t, os.WriteFile(path, []byte("database:\n  url: postgres://localhost/ping\n"), 0o600))

		out, err := execute(t, "config", "validate", path)
		require.NoError(t, err)
		assert.Contains(t, out, path+" is valid")
	})

	t.Run("unknown key", func(t *testing.T) {
		path := filepath.Join(dir, "typo.yaml")
		require.NoError(t, os.WriteFile(path, []byte("databse:\n  url: postgres://localhost/ping\n"), 0o600))

		_, err := execute(t, "config", "validate", path)
		errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	})

	t.Run("semantic failure", func(t *testing.T) {
		path := filepath.Join(dir, "nodb.yaml")
		require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))
		t.Setenv("DATABASE_URL", "")
		t.Setenv("PINGAUTH_DATABASE__URL", "")

		_, err := execute(t, "config", "validate", path)
		errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
		assert.Contains(t, err.Error(), "database URL")
	})
}

func TestConfigShow_RedactsSecrets(t *testing.T) {
	t.Setenv("PINGAUTH_AUTH__JWT_SECRET", testJWTSecret)
	t.Setenv("PINGAUTH_DATABASE__URL", "postgres://ping:s3cret@db:5432/ping")

	out, err := execute(t, "config", "show")

	require.NoError(t, err)
	assert.NotContains(t, out, testJWTSecret)
	assert.NotContains(t, out, "s3cret")
	assert.Contains(t, out, "jwt_secret: REDACTED")
	assert.Contains(t, out, "interval: 15m0s")
	require.NoError(t, config.ValidateFile([]byte(out)), "show output is a valid config file")
}
