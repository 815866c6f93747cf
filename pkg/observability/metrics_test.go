package observability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/patchtally/pkg/observability"
)

func TestCountMetrics_RecordLine(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := observability.NewCountMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordLine(ctx, "v4.4", 12)
	metrics.RecordLine(ctx, "v4.9", 3)
	metrics.RecordOracleCall(ctx, "commits_in_range", errors.New("boom"), time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	matched := findMetric(rm, "patchtally.commits.matched.total")
	require.NotNil(t, matched)

	sum, ok := matched.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, sum.DataPoints, 2)

	reports := findMetric(rm, "patchtally.reports.written.total")
	require.NotNil(t, reports)

	duration := findMetric(rm, "patchtally.oracle.call.duration.seconds")
	require.NotNil(t, duration)
}

func TestCountMetrics_NilReceiverIsNoop(t *testing.T) {
	t.Parallel()

	var metrics *observability.CountMetrics

	assert.NotPanics(t, func() {
		metrics.RecordLine(context.Background(), "v4.4", 1)
		metrics.RecordOracleCall(context.Background(), "list_tags", nil, time.Second)
	})
}
