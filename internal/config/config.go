// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

// Package config loads the pingauth configuration from defaults, an optional
// YAML file, environment variables and command-line flags.
package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/pinghq/ping-auth/internal/auth"
	"github.com/pinghq/ping-auth/internal/logging"
)

// Config is the complete service configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"        yaml:"server"        json:"server"`
	Database      DatabaseConfig      `koanf:"database"      yaml:"database"      json:"database"`
	Auth          AuthConfig          `koanf:"auth"          yaml:"auth"          json:"auth"`
	Mail          MailConfig          `koanf:"mail"          yaml:"mail"          json:"mail"`
	Log           LogConfig           `koanf:"log"           yaml:"log"           json:"log"`
	Observability ObservabilityConfig `koanf:"observability" yaml:"observability" json:"observability"`
	Janitor       JanitorConfig       `koanf:"janitor"       yaml:"janitor"       json:"janitor"`
}

// ServerConfig configures the public HTTP API.
type ServerConfig struct {
	Addr            string          `koanf:"addr"             yaml:"addr"             json:"addr"             jsonschema:"description=API listen address"`
	ClientURL       string          `koanf:"client_url"       yaml:"client_url"       json:"client_url"       jsonschema:"description=Front-end origin used in email links"`
	AllowedOrigins  []string        `koanf:"allowed_origins"  yaml:"allowed_origins"  json:"allowed_origins"  jsonschema:"description=CORS origin glob patterns"`
	MaxBodyBytes    int64           `koanf:"max_body_bytes"   yaml:"max_body_bytes"   json:"max_body_bytes"   jsonschema:"minimum=1"`
	ShutdownTimeout time.Duration   `koanf:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimit       RateLimitConfig `koanf:"rate_limit"       yaml:"rate_limit"       json:"rate_limit"`
	// TrustProxy reads the client IP from X-Forwarded-For and X-Real-IP.
	TrustProxy bool `koanf:"trust_proxy" yaml:"trust_proxy" json:"trust_proxy" jsonschema:"description=Take the client IP from forwarding headers; set only behind a proxy that overwrites them"`
}

// RateLimitConfig bounds the credential endpoints per client IP.
type RateLimitConfig struct {
	Burst int     `koanf:"burst" yaml:"burst" json:"burst" jsonschema:"minimum=1"`
	Rate  float64 `koanf:"rate"  yaml:"rate"  json:"rate"  jsonschema:"description=Sustained requests per second"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	URL          string        `koanf:"url"           yaml:"url"           json:"url"           jsonschema:"description=PostgreSQL connection URL"`
	MaxConns     int32         `koanf:"max_conns"     yaml:"max_conns"     json:"max_conns"     jsonschema:"minimum=0"`
	MinConns     int32         `koanf:"min_conns"     yaml:"min_conns"     json:"min_conns"     jsonschema:"minimum=0"`
	ConnectRetry time.Duration `koanf:"connect_retry" yaml:"connect_retry" json:"connect_retry"`
	AutoMigrate  bool          `koanf:"auto_migrate"  yaml:"auto_migrate"  json:"auto_migrate"  jsonschema:"description=Apply pending migrations on serve startup"`
}

// AuthConfig configures token signing and login policy.
type AuthConfig struct {
	JWTSecret            string        `koanf:"jwt_secret"             yaml:"jwt_secret"             json:"jwt_secret"`
	Issuer               string        `koanf:"issuer"                 yaml:"issuer"                 json:"issuer"`
	Audience             string        `koanf:"audience"               yaml:"audience"               json:"audience"`
	AccessTTL            time.Duration `koanf:"access_ttl"             yaml:"access_ttl"             json:"access_ttl"`
	RefreshTTL           time.Duration `koanf:"refresh_ttl"            yaml:"refresh_ttl"            json:"refresh_ttl"`
	VerificationTTL      time.Duration `koanf:"verification_ttl"       yaml:"verification_ttl"       json:"verification_ttl"`
	RequireVerifiedEmail bool          `koanf:"require_verified_email" yaml:"require_verified_email" json:"require_verified_email"`
}

// MailConfig configures outbound email. An empty Host logs emails instead
// of sending them.
type MailConfig struct {
	Host       string `koanf:"host"        yaml:"host"        json:"host"`
	Port       int    `koanf:"port"        yaml:"port"        json:"port"        jsonschema:"minimum=1,maximum=65535"`
	Username   string `koanf:"username"    yaml:"username"    json:"username"`
	Password   string `koanf:"password"    yaml:"password"    json:"password"`
	From       string `koanf:"from"        yaml:"from"        json:"from"`
	FromName   string `koanf:"from_name"   yaml:"from_name"   json:"from_name"`
	Signature  string `koanf:"signature"   yaml:"signature"   json:"signature"`
	MaxRetries uint64 `koanf:"max_retries" yaml:"max_retries" json:"max_retries"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `koanf:"level"  yaml:"level"  json:"level"  jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	Format string `koanf:"format" yaml:"format" json:"format" jsonschema:"enum=json,enum=text"`
}

// ObservabilityConfig configures the metrics and health listener.
type ObservabilityConfig struct {
	// Addr is empty to disable the listener.
	Addr string `koanf:"addr" yaml:"addr" json:"addr"`
}

// JanitorConfig configures the expired row cleanup.
type JanitorConfig struct {
	Interval time.Duration `koanf:"interval" yaml:"interval" json:"interval"`
}

// Validate runs the semantic checks the schema cannot express.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return invalid("server.addr", "server address is required")
	}
	if err := validateAbsoluteURL(c.Server.ClientURL); err != nil {
		return invalid("server.client_url", "client URL must be an absolute http or https URL")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return invalid("server.max_body_bytes", "max body bytes must be positive")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return invalid("server.shutdown_timeout", "shutdown timeout must be positive")
	}
	if c.Server.RateLimit.Burst <= 0 || c.Server.RateLimit.Rate <= 0 {
		return invalid("server.rate_limit", "rate limit burst and rate must be positive")
	}
	if c.Database.URL == "" {
		return invalid("database.url", "database URL is required")
	}
	if c.Database.MinConns > c.Database.MaxConns && c.Database.MaxConns > 0 {
		return invalid("database.min_conns", "min conns cannot exceed max conns")
	}
	if len(c.Auth.JWTSecret) < auth.MinSecretLength {
		return invalid("auth.jwt_secret", "JWT secret must be at least 32 bytes")
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 || c.Auth.VerificationTTL <= 0 {
		return invalid("auth", "token lifetimes must be positive")
	}
	if c.Auth.AccessTTL >= c.Auth.RefreshTTL {
		return invalid("auth.access_ttl", "access token lifetime must be shorter than the refresh lifetime")
	}
	if c.Mail.Host != "" {
		if c.Mail.Port <= 0 || c.Mail.Port > 65535 {
			return invalid("mail.port", "mail port must be between 1 and 65535")
		}
		if c.Mail.From == "" {
			return invalid("mail.from", "mail from address is required when a mail host is set")
		}
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", "log level must be debug, info, warn or error")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", "log format must be json or text")
	}
	if c.Janitor.Interval <= 0 {
		return invalid("janitor.interval", "janitor interval must be positive")
	}
	return nil
}

// MailEnabled reports whether emails are delivered over SMTP.
func (c *Config) MailEnabled() bool {
	return c.Mail.Host != ""
}

// redacted replaces secret values.
const redacted = "REDACTED"

// Redacted returns a copy with secrets masked, safe to print.
func (c *Config) Redacted() Config {
	out := *c
	out.Server.AllowedOrigins = append([]string(nil), c.Server.AllowedOrigins...)
	if out.Auth.JWTSecret != "" {
		out.Auth.JWTSecret = redacted
	}
	if out.Mail.Password != "" {
		out.Mail.Password = redacted
	}
	if u, err := url.Parse(out.Database.URL); err == nil && u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), redacted)
			out.Database.URL = u.String()
		}
	}
	return out
}

func invalid(key, msg string) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf("%s", msg)
}

func validateAbsoluteURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return oops.Errorf("not an absolute http URL")
	}
	return nil
}
