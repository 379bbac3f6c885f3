package plan

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level tracer and meter for plan builds. Both are no-ops until the
// process installs providers.
var (
	tracer = otel.Tracer("loadplan.plan")
	meter  = otel.Meter("loadplan.plan")
)

var (
	buildsTotal metric.Int64Counter
	spacesBuilt metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		buildsTotal, err = meter.Int64Counter(
			"loadplan_builds_total",
			metric.WithDescription("Total number of load plan builds"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		spacesBuilt, err = meter.Int64Histogram(
			"loadplan_query_spaces",
			metric.WithDescription("Number of query spaces per successful build"),
		)
		if err != nil {
			metricsErr = err
		}
	})
	return metricsErr
}

// recordBuild records the outcome of one build.
func recordBuild(ctx context.Context, root string, spaceCount int, buildErr error) {
	if initMetrics() != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("root", root),
		attribute.Bool("success", buildErr == nil),
	)
	buildsTotal.Add(ctx, 1, attrs)
	if buildErr == nil {
		spacesBuilt.Record(ctx, int64(spaceCount), metric.WithAttributes(attribute.String("root", root)))
	}
}
