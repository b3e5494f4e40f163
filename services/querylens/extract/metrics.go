// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extract

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level meter for extraction.
var meter = otel.Meter("querylens.extract")

// Metrics for extraction operations.
var (
	extractLatency  metric.Float64Histogram
	chainsSeen      metric.Int64Counter
	chainsResolved  metric.Int64Counter
	extractFailures metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		extractLatency, err = meter.Float64Histogram(
			"querylens_extract_duration_seconds",
			metric.WithDescription("Duration of per-file chain extraction"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		chainsSeen, err = meter.Int64Counter(
			"querylens_chains_seen_total",
			metric.WithDescription("Total candidate call chains inspected"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		chainsResolved, err = meter.Int64Counter(
			"querylens_chains_resolved_total",
			metric.WithDescription("Total chains yielding an extraction result"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		extractFailures, err = meter.Int64Counter(
			"querylens_extract_failures_total",
			metric.WithDescription("Total per-file extraction failures"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordExtract records metrics for one per-file extraction.
func recordExtract(ctx context.Context, mode string, duration time.Duration, seen, resolved int, success bool) {
	if err := initMetrics(); err != nil {
		return // Silently skip if metrics init failed
	}

	attrs := metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.Bool("success", success),
	)
	extractLatency.Record(ctx, duration.Seconds(), attrs)
	chainsSeen.Add(ctx, int64(seen), attrs)
	chainsResolved.Add(ctx, int64(resolved), attrs)
	if !success {
		extractFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
	}
}
