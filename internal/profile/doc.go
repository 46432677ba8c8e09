// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

// Package profile manages the single public profile attached to each user.
package profile
