// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

//go:build integration

package cli_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

const seedYAML = `
users:
  - full_name: Ada Lovelace
    email: Ada@Example.com
    password: Str0ng!Passw0rd
    verified: true
    profile:
      phone_number: "+15551234567"
      date_of_birth: "1990-01-02"
      bio: Analyst
  - full_name: Grace Hopper
    email: grace@example.com
    password: C0bol!Rules
`

var _ = Describe("Seed Command", func() {
	var (
		ctx      context.Context
		seedPath string
	)

	BeforeEach(func() {
		ctx = context.Background()
		resetDatabase(ctx, env.pool)

		out, err := pingauth(ctx, true, "migrate", "up")
		Expect(err).NotTo(HaveOccurred(), "migrate up failed: %s", out)

		seedPath = filepath.Join(GinkgoT().TempDir(), "seed.yaml")
		Expect(os.WriteFile(seedPath, []byte(seedYAML), 0o600)).To(Succeed())
	})

	It("creates users and profiles", func() {
		out, err := pingauth(ctx, true, "seed", seedPath)
		Expect(err).NotTo(HaveOccurred(), "seed failed: %s", out)
		Expect(out).To(ContainSubstring("Seeding complete: 2 created (1 with profiles), 0 skipped"))

		var verified bool
		var bio string
		err = env.pool.QueryRow(ctx,
			`SELECT u.verified, p.bio FROM users u JOIN profiles p ON p.user_id = u.id WHERE u.email = $1`,
			"ada@example.com",
		).Scan(&verified, &bio)
		Expect(err).NotTo(HaveOccurred())
		Expect(verified).To(BeTrue())
		Expect(bio).To(Equal("Analyst"))
	})

	It("is idempotent", func() {
		out, err := pingauth(ctx, true, "seed", seedPath)
		Expect(err).NotTo(HaveOccurred(), "first seed failed: %s", out)

		out, err = pingauth(ctx, true, "seed", seedPath)
		Expect(err).NotTo(HaveOccurred(), "second seed failed: %s", out)
		Expect(out).To(ContainSubstring("0 created (0 with profiles), 2 skipped"))

		var count int
		Expect(env.pool.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&count)).To(Succeed())
		Expect(count).To(Equal(2))
	})

	It("rejects unknown fields", func() {
		bad := filepath.Join(GinkgoT().TempDir(), "bad.yaml")
		Expect(os.WriteFile(bad, []byte("users:\n  - name: Ada\n"), 0o600)).To(Succeed())

		out, err := pingauth(ctx, true, "seed", bad)
		Expect(err).To(HaveOccurred())
		Expect(out).To(ContainSubstring("field name not found"))
	})
})
