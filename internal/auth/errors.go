// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when a unique constraint would be violated,
// such as registering an email address that is already in use.
var ErrAlreadyExists = errors.New("already exists")
