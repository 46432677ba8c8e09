// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

// Package httpapi exposes the auth and profile services over HTTP.
//
// Every response uses the same JSON envelope:
//
//	{"status": "OK", "message": "...", "data": {...},
//	 "access_token": "...", "refresh_token": "...", "errors": {...}}
//
// Service errors are mapped to status codes by their oops code. Codes
// without a mapping are logged and answered with a 500.
package httpapi
