// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry provides OpenTelemetry-based observability for riskfile.
//
// The package initializes the OTel SDK with opinionated defaults, while
// allowing backend flexibility through exporter configuration.
//
// # Philosophy
//
// Be opinionated about the API, flexible about the backend. OpenTelemetry IS
// the abstraction layer. We use OTel APIs directly (no custom interfaces), and
// users swap backends by changing exporter configuration, not code.
//
// # Exporters
//
// Traces go to stdout or any OTLP-compatible receiver over gRPC. Metrics go
// to stdout or are exposed for Prometheus scraping via MetricsHandler().
// Everything is off by default: riskfile is a CLI first, and short-lived
// invocations should not pay exporter setup unless asked to.
//
// # Usage
//
//	shutdown, err := telemetry.Init(ctx, telemetry.DefaultConfig())
//	if err != nil {
//	    return fmt.Errorf("init telemetry: %w", err)
//	}
//	defer shutdown(context.Background())
//
//	// Now otel.Tracer() and otel.Meter() are configured
//
// # Thread Safety
//
// All exported functions are safe for concurrent use after Init() returns.
package telemetry
