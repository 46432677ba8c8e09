//go:build integration

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package store_test

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/pinghq/ping-auth/internal/store"
)

var _ = Describe("Schema", Ordered, func() {
	var (
		ctx  context.Context
		pool *pgxpool.Pool
	)

	BeforeAll(func() {
		ctx = context.Background()
		connStr := startPostgres(ctx, GinkgoT())

		migrator, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Close()).To(Succeed())

		pool, err = store.Connect(ctx, store.PoolConfig{URL: connStr, ConnectRetry: 10 * time.Second}, slog.Default())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(pool.Close)
	})

	pgCode := func(err error) string {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			return pgErr.Code
		}
		return ""
	}

	It("creates every table", func() {
		for _, table := range []string{"users", "sessions", "password_resets", "profiles"} {
			var exists bool
			err := pool.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`,
				table).Scan(&exists)
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeTrue(), "table %s should exist", table)
		}
	})

	It("enforces case-insensitive unique emails", func() {
		_, err := pool.Exec(ctx,
			`INSERT INTO users (id, full_name, email, password_hash) VALUES ('u1', 'Ada', 'ada@example.com', 'h')`)
		Expect(err).NotTo(HaveOccurred())

		_, err = pool.Exec(ctx,
			`INSERT INTO users (id, full_name, email, password_hash) VALUES ('u2', 'Ada', 'ADA@example.com', 'h')`)
		Expect(pgCode(err)).To(Equal(pgerrcode.UniqueViolation))
	})

	It("allows one profile per user", func() {
		_, err := pool.Exec(ctx,
			`INSERT INTO profiles (id, user_id, phone_number, date_of_birth) VALUES ('p1', 'u1', '+15550100', '1990-01-01')`)
		Expect(err).NotTo(HaveOccurred())

		_, err = pool.Exec(ctx,
			`INSERT INTO profiles (id, user_id, phone_number, date_of_birth) VALUES ('p2', 'u1', '+15550101', '1990-01-01')`)
		Expect(pgCode(err)).To(Equal(pgerrcode.UniqueViolation))
	})

	It("cascades user deletion", func() {
		_, err := pool.Exec(ctx,
			`INSERT INTO sessions (id, user_id, token_hash, expires_at) VALUES ('s1', 'u1', 'th', NOW() + INTERVAL '1 day')`)
		Expect(err).NotTo(HaveOccurred())

		_, err = pool.Exec(ctx, `DELETE FROM users WHERE id = 'u1'`)
		Expect(err).NotTo(HaveOccurred())

		var n int
		Expect(pool.QueryRow(ctx, `SELECT COUNT(*) FROM sessions WHERE user_id = 'u1'`).Scan(&n)).To(Succeed())
		Expect(n).To(BeZero())
		Expect(pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles WHERE user_id = 'u1'`).Scan(&n)).To(Succeed())
		Expect(n).To(BeZero())
	})
})
