package observability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/patchtally/pkg/gitlib"
	"github.com/Sumatoshi-tech/patchtally/pkg/observability"
)

func newTracedOracle(t *testing.T) (gitlib.Oracle, *gitlib.MemoryOracle, *tracetest.InMemoryExporter, *sdkmetric.ManualReader) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := observability.NewCountMetrics(mp.Meter("test"))
	require.NoError(t, err)

	mem := gitlib.NewMemoryOracle()
	root := mem.Commit("root", time.Unix(100, 0))
	mem.Tag("v1.0", mem.Commit("fix", time.Unix(200, 0), root))

	return observability.TraceOracle(tp.Tracer("test"), metrics, mem), mem, exporter, reader
}

func TestTraceOracle_SpanPerQuery(t *testing.T) {
	t.Parallel()

	oracle, _, exporter, reader := newTracedOracle(t)
	ctx := context.Background()

	_, err := oracle.ListTags(ctx)
	require.NoError(t, err)

	refs, err := oracle.CommitsInRange(ctx, "v1.0", gitlib.LogFilter{})
	require.NoError(t, err)
	assert.Len(t, refs, 2)

	_, err = oracle.LastCommitTimestamp(ctx, "v1.0")
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)
	assert.Equal(t, "oracle.list_tags", spans[0].Name)
	assert.Equal(t, "oracle.commits_in_range", spans[1].Name)
	assert.Equal(t, "oracle.last_commit_timestamp", spans[2].Name)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	calls := findMetric(rm, "patchtally.oracle.calls.total")
	require.NotNil(t, calls)

	sum, ok := calls.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}

	assert.Equal(t, int64(3), total)
}

func TestTraceOracle_ErrorMarksSpan(t *testing.T) {
	t.Parallel()

	oracle, mem, exporter, _ := newTracedOracle(t)
	mem.FailWith(errors.New("fatal: not a git repository"))

	_, err := oracle.LastCommitTimestamp(context.Background(), "v1.0")
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	require.NoError(t, oracle.Close())
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}
