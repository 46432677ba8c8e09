// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

// Package store owns the PostgreSQL connection pool and the embedded schema
// migrations.
//
// Repositories in other packages depend on the DB interface rather than on
// *pgxpool.Pool so they can be unit tested with pgxmock.
package store
