// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_ObserveRequest(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveRequest("/api/auth/login", "POST", 200, 15*time.Millisecond)
	m.ObserveRequest("/api/auth/login", "POST", 200, 25*time.Millisecond)
	m.ObserveRequest("/api/auth/login", "POST", 401, time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("/api/auth/login", "POST", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("/api/auth/login", "POST", "401")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestDuration))
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordAuthEvent("login", "success")
	m.RecordAuthEvent("login", "failure")
	m.RecordAuthEvent("login", "failure")
	m.RecordEmailSent("verify_email", "sent")

	assert.InDelta(t, 2, testutil.ToFloat64(m.AuthEventsTotal.WithLabelValues("login", "failure")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.EmailsSentTotal.WithLabelValues("verify_email", "sent")), 0)
}

func TestMetrics_SetRateLimitBuckets(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.SetRateLimitBuckets(12)
	m.SetRateLimitBuckets(3)

	assert.InDelta(t, 3, testutil.ToFloat64(m.RateLimitBuckets), 0)
}

func TestMetrics_RecordPurgedSkipsZero(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordPurged("sessions", 0)
	assert.Equal(t, 0, testutil.CollectAndCount(m.ExpiredPurgedTotal))

	m.RecordPurged("sessions", 4)
	m.RecordPurged("password_resets", 1)
	assert.InDelta(t, 4, testutil.ToFloat64(m.ExpiredPurgedTotal.WithLabelValues("sessions")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.ExpiredPurgedTotal))
}
