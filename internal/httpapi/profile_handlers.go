// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/pinghq/ping-auth/internal/profile"
)

func (a *API) createProfile(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if !a.decode(w, r, &req) {
		return
	}
	dob, err := profile.ParseDate(req.DateOfBirth)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	user := UserFromContext(r.Context())
	p, err := a.profiles.Create(r.Context(), user.ID, req.PhoneNumber, dob)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{
		Message: "Profile created",
		Data:    newProfileResponse(p),
	})
}

func (a *API) getProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := ulid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		a.fail(w, r, oops.Code("PROFILE_USER_ID_REQUIRED").
			With("user_id", chi.URLParam(r, "user_id")).
			Errorf("user ID is required"))
		return
	}

	view, err := a.profiles.Get(r.Context(), userID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: newProfileViewResponse(view)})
}

func (a *API) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !a.decode(w, r, &req) {
		return
	}

	changes := profile.Changes{
		Bio:         req.Bio,
		Avatar:      req.Avatar,
		PhoneNumber: req.PhoneNumber,
	}
	if req.DateOfBirth != nil {
		dob, err := profile.ParseDate(*req.DateOfBirth)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		changes.DateOfBirth = &dob
	}

	user := UserFromContext(r.Context())
	p, err := a.profiles.Update(r.Context(), user.ID, changes)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Message: "Profile updated",
		Data:    newProfileResponse(p),
	})
}

func (a *API) deleteProfile(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if err := a.profiles.Delete(r.Context(), user.ID); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Message: "Profile deleted"})
}
