// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package httpapi

import (
	"net/http"

	"github.com/pinghq/ping-auth/internal/auth"
)

// decode reads and validates a JSON body, answering the request itself on
// failure.
func (a *API) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := readJSON(r, dst)
	if err == nil {
		err = a.validate.Struct(dst)
	}
	if err != nil {
		writeError(r.Context(), w, a.logger, err)
		return false
	}
	return true
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(r.Context(), w, a.logger, err)
}

func writeAuthResult(w http.ResponseWriter, status int, message string, res *auth.AuthResult) {
	writeJSON(w, status, envelope{
		Message:      message,
		Data:         newUserResponse(res.User),
		AccessToken:  res.AccessToken.Token,
		RefreshToken: res.RefreshToken.Token,
	})
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !a.decode(w, r, &req) {
		return
	}

	res, err := a.auth.Register(r.Context(), auth.RegisterInput{
		FullName:  req.FullName,
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: r.UserAgent(),
		IPAddress: clientIP(r),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}

	msg := "Please check your email for verification mail"
	if !res.VerificationSent {
		msg = "Account created, but the verification email could not be sent. Please request a new one"
	}
	writeAuthResult(w, http.StatusOK, msg, res)
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !a.decode(w, r, &req) {
		return
	}

	res, err := a.auth.Login(r.Context(), req.Email, req.Password, r.UserAgent(), clientIP(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeAuthResult(w, http.StatusOK, "", res)
}

func (a *API) verifyEmail(w http.ResponseWriter, r *http.Request) {
	user, err := a.auth.VerifyEmail(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Message: "Email verified successfully",
		Data:    newUserResponse(user),
	})
}

func (a *API) resendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.auth.ResendVerification(r.Context(), req.Email); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Message: "If the account exists and is not verified, a verification email has been sent",
	})
}

func (a *API) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.resets.RequestReset(r.Context(), req.Email); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Message: "If the email is registered, a password reset link has been sent",
	})
}

func (a *API) validateResetToken(w http.ResponseWriter, r *http.Request) {
	if _, err := a.resets.ValidateToken(r.Context(), r.URL.Query().Get("token")); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Message: "Reset token is valid"})
}

func (a *API) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.resets.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Message: "Password has been reset"})
}

func (a *API) refreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !a.decode(w, r, &req) {
		return
	}
	res, err := a.auth.Refresh(r.Context(), req.RefreshToken, r.UserAgent(), clientIP(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeAuthResult(w, http.StatusOK, "", res)
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.auth.Logout(r.Context(), req.RefreshToken); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Message: "Logged out"})
}

func (a *API) logoutAll(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	n, err := a.auth.LogoutAll(r.Context(), user.ID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Message: "Logged out of all sessions",
		Data:    map[string]int64{"revoked": n},
	})
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Data: newUserResponse(UserFromContext(r.Context()))})
}

func (a *API) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !a.decode(w, r, &req) {
		return
	}
	user := UserFromContext(r.Context())
	res, err := a.auth.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword, r.UserAgent(), clientIP(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeAuthResult(w, http.StatusOK, "Password changed", res)
}

func (a *API) sessions(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	sessions, err := a.auth.ListSessions(r.Context(), user.ID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: newSessionResponses(sessions)})
}
