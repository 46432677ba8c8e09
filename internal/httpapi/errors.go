// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/samber/oops"

	"github.com/pinghq/ping-auth/pkg/errutil"
)

// publicError is the HTTP rendering of an error code.
type publicError struct {
	Status  int
	Message string
}

// Messages follow the wording clients of the service already depend on.
var errorTable = map[string]publicError{
	"AUTH_INVALID_INPUT":       {http.StatusBadRequest, "Missing required fields"},
	"AUTH_EMPTY_PASSWORD":      {http.StatusBadRequest, "Password is required"},
	"AUTH_WEAK_PASSWORD":       {http.StatusBadRequest, "Password is too weak"},
	"AUTH_EMAIL_TAKEN":         {http.StatusForbidden, "User already exists"},
	"AUTH_INVALID_CREDENTIALS": {http.StatusUnauthorized, "Invalid credentials"},
	"AUTH_TOKEN_MISSING":       {http.StatusUnauthorized, "No token provided"},
	"AUTH_INVALID_TOKEN":       {http.StatusUnauthorized, "Invalid token"},
	"AUTH_TOKEN_EXPIRED":       {http.StatusUnauthorized, "Invalid token"},
	"AUTH_TOKEN_REUSED":        {http.StatusUnauthorized, "Invalid token"},
	"AUTH_UNAUTHORIZED":        {http.StatusUnauthorized, "Unauthorized"},
	"AUTH_ACCOUNT_LOCKED":      {http.StatusTooManyRequests, "Account is temporarily locked"},
	"AUTH_EMAIL_NOT_VERIFIED":  {http.StatusForbidden, "Email address has not been verified"},

	"RESET_EMAIL_EMPTY":    {http.StatusBadRequest, "Email is required"},
	"RESET_TOKEN_EMPTY":    {http.StatusBadRequest, "Reset token is required"},
	"RESET_TOKEN_INVALID":  {http.StatusBadRequest, "Invalid or expired reset token"},
	"RESET_TOKEN_EXPIRED":  {http.StatusBadRequest, "Invalid or expired reset token"},
	"RESET_PASSWORD_EMPTY": {http.StatusBadRequest, "New password is required"},

	"PROFILE_INVALID_INPUT":    {http.StatusBadRequest, "Invalid profile data"},
	"PROFILE_USER_ID_REQUIRED": {http.StatusBadRequest, "User ID is required"},
	"PROFILE_NOT_FOUND":        {http.StatusNotFound, "Profile not found"},
	"PROFILE_USER_NOT_FOUND":   {http.StatusNotFound, "User not found"},
	"PROFILE_EXISTS":           {http.StatusConflict, "Profile already exists"},

	"REQUEST_INVALID_BODY":    {http.StatusBadRequest, "Invalid request body"},
	"REQUEST_BODY_TOO_LARGE":  {http.StatusRequestEntityTooLarge, "Request body too large"},
	"REQUEST_VALIDATION":      {http.StatusBadRequest, "Missing or invalid fields"},
	"REQUEST_RATE_LIMITED":    {http.StatusTooManyRequests, "Too many requests"},
	"REQUEST_ROUTE_NOT_FOUND": {http.StatusNotFound, "Not found"},
}

var internalError = publicError{http.StatusInternalServerError, "internal server error"}

// lookupError resolves the public rendering of err. The second return is
// false for codes outside the table.
func lookupError(err error) (publicError, bool) {
	pe, ok := errorTable[errutil.Code(err)]
	if !ok {
		return internalError, false
	}
	return pe, true
}

// StatusFor returns the HTTP status an error maps to.
func StatusFor(err error) int {
	pe, _ := lookupError(err)
	return pe.Status
}

// writeError renders err in the response envelope. Errors without a table
// entry are logged with their code and context and answered with a 500.
func writeError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, err error) {
	pe, known := lookupError(err)
	if !known {
		errutil.LogErrorContext(ctx, logger, "request failed", err)
		writeJSON(w, pe.Status, envelope{Message: pe.Message})
		return
	}

	env := envelope{Message: pe.Message}
	if oopsErr, ok := oops.AsOops(err); ok {
		fields := oopsErr.Context()
		if secs, ok := fields["retry_after_seconds"]; ok {
			w.Header().Set("Retry-After", fmt.Sprint(secs))
		}
		if pe.Status == http.StatusBadRequest {
			env.Errors = fieldErrors(errutil.Code(err), fields, oopsErr.Error())
		}
	}
	writeJSON(w, pe.Status, env)
}

// fieldErrors exposes domain validation messages keyed by the offending field.
func fieldErrors(code string, fields map[string]any, msg string) map[string]string {
	if m, ok := fields["fields"].(map[string]string); ok {
		return m
	}
	if field, ok := fields["field"].(string); ok && field != "" {
		return map[string]string{field: msg}
	}
	if code == "AUTH_WEAK_PASSWORD" {
		return map[string]string{"password": msg}
	}
	return nil
}

// writeRateLimited answers a throttled request.
func writeRateLimited(w http.ResponseWriter, wait int) {
	pe := errorTable["REQUEST_RATE_LIMITED"]
	w.Header().Set("Retry-After", strconv.Itoa(wait))
	writeJSON(w, pe.Status, envelope{Message: pe.Message})
}
