// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the custom Prometheus metrics of the auth service.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	AuthEventsTotal     *prometheus.CounterVec
	EmailsSentTotal     *prometheus.CounterVec
	RateLimitBuckets    prometheus.Gauge
	ExpiredPurgedTotal  *prometheus.CounterVec
}

// NewMetrics creates and registers the custom metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pingauth_http_requests_total",
				Help: "Total number of HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pingauth_http_request_duration_seconds",
				Help:    "HTTP request latency by route and method",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		AuthEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pingauth_auth_events_total",
				Help: "Total number of authentication events by event and outcome",
			},
			[]string{"event", "outcome"},
		),
		EmailsSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pingauth_emails_sent_total",
				Help: "Total number of account emails by template and outcome",
			},
			[]string{"template", "outcome"},
		),
		RateLimitBuckets: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pingauth_rate_limit_buckets",
				Help: "Number of client buckets tracked by the rate limiter",
			},
		),
		ExpiredPurgedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pingauth_expired_purged_total",
				Help: "Total number of expired rows removed by the janitor",
			},
			[]string{"kind"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthEventsTotal,
		m.EmailsSentTotal,
		m.RateLimitBuckets,
		m.ExpiredPurgedTotal,
	)
	return m
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// RecordAuthEvent counts an authentication outcome.
func (m *Metrics) RecordAuthEvent(event, outcome string) {
	m.AuthEventsTotal.WithLabelValues(event, outcome).Inc()
}

// RecordEmailSent counts an email delivery outcome.
func (m *Metrics) RecordEmailSent(template, outcome string) {
	m.EmailsSentTotal.WithLabelValues(template, outcome).Inc()
}

// SetRateLimitBuckets reports the current limiter size.
func (m *Metrics) SetRateLimitBuckets(n int) {
	m.RateLimitBuckets.Set(float64(n))
}

// RecordPurged adds n purged rows of the given kind.
func (m *Metrics) RecordPurged(kind string, n int64) {
	if n > 0 {
		m.ExpiredPurgedTotal.WithLabelValues(kind).Add(float64(n))
	}
}
