// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for engine operations.
var (
	tracer = otel.Tracer("riskfile.engine")
	meter  = otel.Meter("riskfile.engine")
)

// Metrics for assessment and persistence operations.
var (
	assessLatency metric.Float64Histogram
	assessTotal   metric.Int64Counter
	batchSize     metric.Int64Histogram
	backupTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		assessLatency, err = meter.Float64Histogram(
			"risk_assessment_duration_seconds",
			metric.WithDescription("Duration of risk assessment operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		assessTotal, err = meter.Int64Counter(
			"risk_assessments_total",
			metric.WithDescription("Total number of risk assessments"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		batchSize, err = meter.Int64Histogram(
			"risk_batch_records",
			metric.WithDescription("Number of records per batch assessment"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		backupTotal, err = meter.Int64Counter(
			"risk_backups_total",
			metric.WithDescription("Total number of backup and restore operations"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordAssessMetrics records one assessment outcome.
func recordAssessMetrics(ctx context.Context, strategy string, level string, duration time.Duration, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("strategy", strategy),
		attribute.Bool("success", success),
	)
	assessLatency.Record(ctx, duration.Seconds(), attrs)

	if success {
		assessTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("strategy", strategy),
			attribute.String("level", level),
			attribute.Bool("success", true),
		))
	} else {
		assessTotal.Add(ctx, 1, attrs)
	}
}

// recordBatchMetrics records the size of a batch assessment.
func recordBatchMetrics(ctx context.Context, size int) {
	if err := initMetrics(); err != nil {
		return
	}
	batchSize.Record(ctx, int64(size))
}

// recordBackupMetrics records one backup or restore outcome.
func recordBackupMetrics(ctx context.Context, op string, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	backupTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.Bool("success", success),
	))
}

// startAssessSpan creates a span for an assessment operation.
func startAssessSpan(ctx context.Context, op, id, strategy string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Engine."+op,
		trace.WithAttributes(
			attribute.String("risk.record_id", id),
			attribute.String("risk.strategy", strategy),
		),
	)
}

// setAssessSpanResult sets the outcome attributes on an assessment span.
func setAssessSpanResult(span trace.Span, rpn int, level string) {
	span.SetAttributes(
		attribute.Int("risk.rpn", rpn),
		attribute.String("risk.level", level),
	)
}
