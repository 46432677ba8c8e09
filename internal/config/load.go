// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/pinghq/ping-auth/internal/auth"
)

// EnvPrefix prefixes every environment override. Nested keys use a double
// underscore, so PINGAUTH_AUTH__JWT_SECRET sets auth.jwt_secret.
const EnvPrefix = "PINGAUTH_"

// Defaults returns the built-in configuration values keyed by path.
func Defaults() map[string]any {
	return map[string]any{
		"server.addr":             ":8080",
		"server.client_url":       "http://localhost:3000",
		"server.allowed_origins":  []string{"http://localhost:3000"},
		"server.max_body_bytes":   int64(1 << 20),
		"server.shutdown_timeout": 5 * time.Second,
		"server.rate_limit.burst": 5,
		"server.rate_limit.rate":  0.2,
		"server.trust_proxy":      false,

		"database.url":           "",
		"database.max_conns":     int32(10),
		"database.min_conns":     int32(0),
		"database.connect_retry": 30 * time.Second,
		"database.auto_migrate":  true,

		"auth.jwt_secret":             "",
		"auth.issuer":                 "pingauth",
		"auth.audience":               "ping",
		"auth.access_ttl":             auth.DefaultAccessTokenTTL,
		"auth.refresh_ttl":            auth.DefaultRefreshTokenTTL,
		"auth.verification_ttl":       auth.DefaultVerificationTokenTTL,
		"auth.require_verified_email": false,

		"mail.host":        "",
		"mail.port":        587,
		"mail.username":    "",
		"mail.password":    "",
		"mail.from":        "no-reply@ping.dev",
		"mail.from_name":   "Ping",
		"mail.signature":   "The Ping Team",
		"mail.max_retries": uint64(3),

		"log.level":  "info",
		"log.format": "json",

		"observability.addr": "127.0.0.1:9100",

		"janitor.interval": 15 * time.Minute,
	}
}

// flagKeys maps command-line flag names to configuration paths. Flags not
// listed here are ignored by the loader.
var flagKeys = map[string]string{
	"addr":         "server.addr",
	"metrics-addr": "observability.addr",
	"database-url": "database.url",
	"log-level":    "log.level",
	"log-format":   "log.format",
	"client-url":   "server.client_url",
}

// legacyEnv lists the unprefixed variable names older deployments use.
var legacyEnv = map[string]string{
	"DATABASE_URL": "database.url",
	"JWT_SECRET":   "auth.jwt_secret",
	"CLIENT_URL":   "server.client_url",
	"EMAIL_HOST":   "mail.host",
	"EMAIL_PORT":   "mail.port",
	"EMAIL_USER":   "mail.username",
	"EMAIL_PASS":   "mail.password",
}

// Load builds the configuration. Later layers override earlier ones:
// defaults, the YAML file at path (when non-empty), legacy environment
// names, PINGAUTH_ variables, then changed flags.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // operator supplied path
		if err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("path", path).Wrapf(err, "read config file")
		}
		if err := ValidateFile(data); err != nil {
			return nil, oops.With("path", path).Wrap(err)
		}
	}
	cfg, err := load(path, flags, os.Environ())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadUnvalidated is Load without the semantic checks, for tooling that
// inspects partial configurations.
func LoadUnvalidated(path string, flags *pflag.FlagSet) (*Config, error) {
	return load(path, flags, os.Environ())
}

func load(path string, flags *pflag.FlagSet, environ []string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrapf(err, "load defaults")
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("path", path).Wrapf(err, "load config file")
		}
	}

	if err := k.Load(confmap.Provider(legacyValues(environ), "."), nil); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrapf(err, "load legacy environment")
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrapf(err, "load environment")
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_INVALID").Wrapf(err, "load flags")
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrapf(err, "decode config")
	}
	return &cfg, nil
}

// envKey maps PINGAUTH_SERVER__CLIENT_URL to server.client_url. List
// values are comma separated. Empty variables are ignored.
func envKey(name, value string) (string, any) {
	if value == "" {
		return "", nil
	}
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if key == "server.allowed_origins" {
		return key, splitList(value)
	}
	return key, value
}

func legacyValues(environ []string) map[string]any {
	out := make(map[string]any)
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" {
			continue
		}
		if name == "PORT" {
			out["server.addr"] = ":" + value
			continue
		}
		if key, ok := legacyEnv[name]; ok {
			out[key] = value
		}
	}
	return out
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
