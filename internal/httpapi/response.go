// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/samber/oops"
)

// envelope is the body of every API response. Status is filled from the
// HTTP status code by writeJSON.
type envelope struct {
	Status       string            `json:"status"`
	Message      string            `json:"message,omitempty"`
	Data         any               `json:"data,omitempty"`
	AccessToken  string            `json:"access_token,omitempty"`
	RefreshToken string            `json:"refresh_token,omitempty"`
	Errors       map[string]string `json:"errors,omitempty"`
}

// writeJSON sends env with the given status code.
func writeJSON(w http.ResponseWriter, status int, env envelope) {
	env.Status = http.StatusText(status)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error("write JSON response", "error", err)
	}
}

// readJSON decodes the request body into dst. Unknown fields are ignored;
// trailing data after the first JSON value is rejected.
func readJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return oops.Code("REQUEST_BODY_TOO_LARGE").
				With("limit", maxErr.Limit).
				Errorf("request body exceeds %d bytes", maxErr.Limit)
		case errors.Is(err, io.EOF):
			return oops.Code("REQUEST_INVALID_BODY").Errorf("request body is empty")
		default:
			return oops.Code("REQUEST_INVALID_BODY").Wrapf(err, "decode request body")
		}
	}
	if dec.More() {
		return oops.Code("REQUEST_INVALID_BODY").Errorf("request body has trailing data")
	}
	return nil
}
