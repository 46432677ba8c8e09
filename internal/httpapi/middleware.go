// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package httpapi

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/pinghq/ping-auth/internal/auth"
)

// RequestObserver records served requests. observability.Metrics satisfies it.
type RequestObserver interface {
	ObserveRequest(route, method string, status int, elapsed time.Duration)
}

type contextKey string

const userContextKey contextKey = "user"

// UserFromContext returns the authenticated user, or nil outside requireAuth.
func UserFromContext(ctx context.Context) *auth.User {
	user, _ := ctx.Value(userContextKey).(*auth.User)
	return user
}

// requestLogger writes one access log record per request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			status := statusOf(ww)
			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_ip", clientIP(r))
		})
	}
}

// statusOf treats a handler that never wrote a header as 200.
func statusOf(ww middleware.WrapResponseWriter) int {
	if ww.Status() == 0 {
		return http.StatusOK
	}
	return ww.Status()
}

// observeRequests reports request counts and latency labeled by route
// pattern, so path parameters do not explode label cardinality.
func observeRequests(obs RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			obs.ObserveRequest(route, r.Method, statusOf(ww), time.Since(start))
		})
	}
}

// compileOrigins turns the allowed origin patterns into matchers.
// Patterns use glob syntax, e.g. "https://*.ping.app".
func compileOrigins(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, oops.Code("HTTPAPI_INVALID_CONFIG").
				With("origin", p).
				Wrapf(err, "compile allowed origin")
		}
		globs = append(globs, g)
	}
	return globs, nil
}

func corsHandler(origins []glob.Glob) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowOriginFunc: func(_ *http.Request, origin string) bool {
			for _, g := range origins {
				if g.Match(origin) {
					return true
				}
			}
			return false
		},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Retry-After", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           86400,
	})
}

// limitBody caps request bodies at n bytes.
func limitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimit throttles requests per client IP.
func rateLimit(rl *RateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			allowed, wait := rl.Allow(ip)
			if !allowed {
				logger.WarnContext(r.Context(), "rate limit exceeded",
					"remote_ip", ip,
					"path", r.URL.Path)
				writeRateLimited(w, int(math.Ceil(wait.Seconds())))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticator resolves an access token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*auth.User, error)
}

// requireAuth loads the user behind an "Authorization: Bearer" access token.
func requireAuth(authn Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authn.Authenticate(r.Context(), bearerToken(r))
			if err != nil {
				writeError(r.Context(), w, logger, err)
				return
			}
			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken returns the token of an "Authorization: Bearer" header, or "".
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// clientIP strips the port from RemoteAddr. When proxy headers are trusted
// middleware.RealIP has already applied them.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
