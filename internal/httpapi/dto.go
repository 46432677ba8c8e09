// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package httpapi

import (
	"time"

	"github.com/pinghq/ping-auth/internal/auth"
	"github.com/pinghq/ping-auth/internal/profile"
)

type registerRequest struct {
	FullName string `json:"full_name" validate:"required,max=100"`
	Email    string `json:"email"     validate:"required,email"`
	Password string `json:"password"  validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"        validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required"`
}

type createProfileRequest struct {
	PhoneNumber string `json:"phone_number"  validate:"required"`
	DateOfBirth string `json:"date_of_birth" validate:"required"`
}

// updateProfileRequest distinguishes absent fields (nil) from cleared ones.
type updateProfileRequest struct {
	Bio         *string `json:"bio"           validate:"omitnil,max=500"`
	Avatar      *string `json:"avatar"`
	PhoneNumber *string `json:"phone_number"`
	DateOfBirth *string `json:"date_of_birth"`
}

type userResponse struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// newUserResponse never carries the password hash or lockout state.
func newUserResponse(u *auth.User) userResponse {
	return userResponse{
		ID:        u.ID.String(),
		FullName:  u.FullName,
		Email:     u.Email,
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type sessionResponse struct {
	ID         string    `json:"id"`
	UserAgent  string    `json:"user_agent,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func newSessionResponses(sessions []*auth.Session) []sessionResponse {
	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionResponse{
			ID:         s.ID.String(),
			UserAgent:  s.UserAgent,
			IPAddress:  s.IPAddress,
			CreatedAt:  s.CreatedAt,
			LastUsedAt: s.LastUsedAt,
			ExpiresAt:  s.ExpiresAt,
		})
	}
	return out
}

type profileResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Bio         string    `json:"bio"`
	Avatar      string    `json:"avatar"`
	PhoneNumber string    `json:"phone_number"`
	DateOfBirth string    `json:"date_of_birth"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newProfileResponse(p *profile.Profile) profileResponse {
	return profileResponse{
		ID:          p.ID.String(),
		UserID:      p.UserID.String(),
		Bio:         p.Bio,
		Avatar:      p.Avatar,
		PhoneNumber: p.PhoneNumber,
		DateOfBirth: p.DateOfBirth.Format(profile.DateLayout),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type profileUserResponse struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
}

type profileViewResponse struct {
	profileResponse
	User profileUserResponse `json:"user"`
}

func newProfileViewResponse(v *profile.View) profileViewResponse {
	return profileViewResponse{
		profileResponse: newProfileResponse(v.Profile),
		User: profileUserResponse{
			FullName: v.User.FullName,
			Email:    v.User.Email,
			Verified: v.User.Verified,
		},
	}
}
