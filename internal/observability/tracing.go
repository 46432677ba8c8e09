// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// InstallTracePropagation makes otelhttp continue inbound W3C trace context
// and baggage. No exporter is configured, so spans stay non-recording, but
// the caller's trace and span IDs reach the request logs.
func InstallTracePropagation() {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}
