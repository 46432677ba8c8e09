// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pinghq/ping-auth/internal/auth"
	"github.com/pinghq/ping-auth/internal/profile"
)

// DefaultMaxBodyBytes bounds JSON request bodies.
const DefaultMaxBodyBytes int64 = 1 << 20

// AuthService is implemented by auth.Service.
type AuthService interface {
	Authenticator
	Register(ctx context.Context, in auth.RegisterInput) (*auth.AuthResult, error)
	Login(ctx context.Context, email, password, userAgent, ipAddress string) (*auth.AuthResult, error)
	VerifyEmail(ctx context.Context, token string) (*auth.User, error)
	ResendVerification(ctx context.Context, email string) error
	Refresh(ctx context.Context, refreshToken, userAgent, ipAddress string) (*auth.AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, userID ulid.ULID) (int64, error)
	ChangePassword(ctx context.Context, userID ulid.ULID, current, next, userAgent, ipAddress string) (*auth.AuthResult, error)
	ListSessions(ctx context.Context, userID ulid.ULID) ([]*auth.Session, error)
}

// ResetService is implemented by auth.PasswordResetService.
type ResetService interface {
	RequestReset(ctx context.Context, email string) error
	ValidateToken(ctx context.Context, token string) (ulid.ULID, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// ProfileService is implemented by profile.Service.
type ProfileService interface {
	Create(ctx context.Context, userID ulid.ULID, phoneNumber string, dateOfBirth time.Time) (*profile.Profile, error)
	Get(ctx context.Context, userID ulid.ULID) (*profile.View, error)
	Update(ctx context.Context, userID ulid.ULID, changes profile.Changes) (*profile.Profile, error)
	Delete(ctx context.Context, userID ulid.ULID) error
}

var (
	_ AuthService    = (*auth.Service)(nil)
	_ ResetService   = (*auth.PasswordResetService)(nil)
	_ ProfileService = (*profile.Service)(nil)
)

// Config holds the HTTP API settings.
type Config struct {
	// AllowedOrigins are glob patterns matched against the CORS Origin header.
	AllowedOrigins []string

	// MaxBodyBytes defaults to DefaultMaxBodyBytes when zero or negative.
	MaxBodyBytes int64

	// RateLimit applies to the credential endpoints.
	RateLimit RateLimiterConfig

	// TrustProxyHeaders takes the client address from X-Forwarded-For or
	// X-Real-IP. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

// Deps are the collaborators of the API.
type Deps struct {
	Auth     AuthService
	Resets   ResetService
	Profiles ProfileService

	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// Metrics is optional.
	Metrics RequestObserver
}

// API is the HTTP surface of the service.
type API struct {
	router   chi.Router
	auth     AuthService
	resets   ResetService
	profiles ProfileService
	logger   *slog.Logger
	validate *requestValidator
	limiter  *RateLimiter
}

// New builds the router. Close releases the rate limiter.
func New(cfg Config, deps Deps) (*API, error) {
	if deps.Auth == nil {
		return nil, oops.Code("HTTPAPI_INVALID_CONFIG").Errorf("auth service is required")
	}
	if deps.Resets == nil {
		return nil, oops.Code("HTTPAPI_INVALID_CONFIG").Errorf("reset service is required")
	}
	if deps.Profiles == nil {
		return nil, oops.Code("HTTPAPI_INVALID_CONFIG").Errorf("profile service is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	origins, err := compileOrigins(cfg.AllowedOrigins)
	if err != nil {
		return nil, err
	}
	v, err := newRequestValidator()
	if err != nil {
		return nil, err
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	a := &API{
		auth:     deps.Auth,
		resets:   deps.Resets,
		profiles: deps.Profiles,
		logger:   logger,
		validate: v,
		limiter:  NewRateLimiter(cfg.RateLimit),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "pingauth.http",
			otelhttp.WithSpanNameFormatter(func(_ string, req *http.Request) string {
				return req.Method + " " + req.URL.Path
			}))
	})
	r.Use(requestLogger(logger))
	if deps.Metrics != nil {
		r.Use(observeRequests(deps.Metrics))
	}
	r.Use(corsHandler(origins))
	r.Use(limitBody(maxBody))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(r.Context(), w, logger, oops.Code("REQUEST_ROUTE_NOT_FOUND").Errorf("no route for %s", r.URL.Path))
	})

	limited := rateLimit(a.limiter, logger)
	authed := requireAuth(a.auth, logger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(limited).Post("/register", a.register)
			r.With(limited).Post("/login", a.login)
			r.Get("/verify-email", a.verifyEmail)
			r.With(limited).Post("/resend-verification", a.resendVerification)
			r.With(limited).Post("/forgot-password", a.forgotPassword)
			r.Get("/reset-password/validate", a.validateResetToken)
			r.Post("/reset-password", a.resetPassword)
			r.Post("/refresh-token", a.refreshToken)
			r.Post("/logout", a.logout)

			r.Group(func(r chi.Router) {
				r.Use(authed)
				r.Post("/logout-all", a.logoutAll)
				r.Get("/me", a.me)
				r.Post("/change-password", a.changePassword)
				r.Get("/sessions", a.sessions)
			})
		})

		r.Route("/profile", func(r chi.Router) {
			r.Get("/get/", a.getProfile)
			r.Get("/get/{user_id}", a.getProfile)
			r.Group(func(r chi.Router) {
				r.Use(authed)
				r.Post("/create", a.createProfile)
				r.Patch("/", a.updateProfile)
				r.Delete("/", a.deleteProfile)
			})
		})
	})

	a.router = r
	return a, nil
}

// ServeHTTP implements http.Handler.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Close stops background work.
func (a *API) Close() {
	a.limiter.Close()
}
