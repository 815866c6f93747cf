package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricOracleCallsTotal   = "patchtally.oracle.calls.total"
	metricOracleCallDuration = "patchtally.oracle.call.duration.seconds"
	metricCommitsMatched     = "patchtally.commits.matched.total"
	metricReportsWritten     = "patchtally.reports.written.total"

	attrOp     = "op"
	attrStatus = "status"
	attrLine   = "line"

	statusOK    = "ok"
	statusError = "error"
)

// durationBucketBoundaries covers a fast `git tag` up to a full-history log.
var durationBucketBoundaries = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// CountMetrics holds the OTel instruments for a counting run.
type CountMetrics struct {
	oracleCalls    metric.Int64Counter
	oracleDuration metric.Float64Histogram
	commitsMatched metric.Int64Counter
	reportsWritten metric.Int64Counter
}

// NewCountMetrics creates counting instruments from the given meter.
func NewCountMetrics(mt metric.Meter) (*CountMetrics, error) {
	calls, err := mt.Int64Counter(metricOracleCallsTotal,
		metric.WithDescription("Total version-control queries"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricOracleCallsTotal, err)
	}

	duration, err := mt.Float64Histogram(metricOracleCallDuration,
		metric.WithDescription("Version-control query duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricOracleCallDuration, err)
	}

	matched, err := mt.Int64Counter(metricCommitsMatched,
		metric.WithDescription("Commits counted after filtering"),
		metric.WithUnit("{commit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCommitsMatched, err)
	}

	reports, err := mt.Int64Counter(metricReportsWritten,
		metric.WithDescription("Report files written"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricReportsWritten, err)
	}

	return &CountMetrics{
		oracleCalls:    calls,
		oracleDuration: duration,
		commitsMatched: matched,
		reportsWritten: reports,
	}, nil
}

// RecordOracleCall records one completed oracle query.
// Safe to call on a nil receiver (no-op).
func (cm *CountMetrics) RecordOracleCall(ctx context.Context, op string, err error, duration time.Duration) {
	if cm == nil {
		return
	}

	status := statusOK
	if err != nil {
		status = statusError
	}

	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	cm.oracleCalls.Add(ctx, 1, attrs)
	cm.oracleDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordLine records the final cumulative count of one release line.
// Safe to call on a nil receiver (no-op).
func (cm *CountMetrics) RecordLine(ctx context.Context, line string, matched int) {
	if cm == nil {
		return
	}

	cm.commitsMatched.Add(ctx, int64(matched), metric.WithAttributes(attribute.String(attrLine, line)))
	cm.reportsWritten.Add(ctx, 1)
}
