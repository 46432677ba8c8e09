// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

//go:build integration

package cli_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

var _ = Describe("Migrate Command", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		resetDatabase(ctx, env.pool)
	})

	It("applies every migration and reports a clean schema", func() {
		out, err := pingauth(ctx, true, "migrate", "up")
		Expect(err).NotTo(HaveOccurred(), "migrate up failed: %s", out)
		Expect(out).To(ContainSubstring("Migrations completed successfully"))

		out, err = pingauth(ctx, true, "migrate", "status")
		Expect(err).NotTo(HaveOccurred(), "migrate status failed: %s", out)
		Expect(out).To(ContainSubstring("Schema version: 4 (clean)"))
		Expect(out).To(ContainSubstring("000004_profiles"))

		var exists bool
		err = env.pool.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'profiles')",
		).Scan(&exists)
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeTrue())
	})

	It("rolls back one migration by default", func() {
		out, err := pingauth(ctx, true, "migrate", "up")
		Expect(err).NotTo(HaveOccurred(), "migrate up failed: %s", out)

		out, err = pingauth(ctx, true, "migrate", "down")
		Expect(err).NotTo(HaveOccurred(), "migrate down failed: %s", out)
		Expect(out).To(ContainSubstring("Rollback completed successfully"))

		out, err = pingauth(ctx, true, "migrate", "status")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Schema version: 3 (clean)"))
	})

	It("fails with a hint when no database URL is configured", func() {
		out, err := pingauth(ctx, false, "migrate", "up")
		Expect(err).To(HaveOccurred())
		Expect(out).To(ContainSubstring("DATABASE_URL"))
	})
})
