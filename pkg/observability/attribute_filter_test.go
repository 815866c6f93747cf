package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/patchtally/pkg/observability"
)

func filteredProvider(logger *slog.Logger) (*sdktrace.TracerProvider, *tracetest.InMemoryExporter) {
	exporter := tracetest.NewInMemoryExporter()
	filter := observability.NewAttributeFilter(sdktrace.NewSimpleSpanProcessor(exporter), logger)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(filter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	return tp, exporter
}

func endedAttrs(t *testing.T, exporter *tracetest.InMemoryExporter) map[string]any {
	t.Helper()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	out := make(map[string]any)
	for _, kv := range spans[0].Attributes {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}

	return out
}

func TestAttributeFilter_AllowsKnownNamespaces(t *testing.T) {
	t.Parallel()

	tp, exporter := filteredProvider(nil)

	_, span := tp.Tracer("test").Start(context.Background(), "count.line")
	span.SetAttributes(
		attribute.String("patchtally.line", "v4.4"),
		attribute.String("vcs.range", "v4.4..v4.4.1"),
		attribute.Int("vcs.commits", 12),
		attribute.String("error.type", "timeout"),
	)
	span.End()

	attrs := endedAttrs(t, exporter)
	assert.Equal(t, "v4.4", attrs["patchtally.line"])
	assert.Equal(t, "v4.4..v4.4.1", attrs["vcs.range"])
	assert.Equal(t, int64(12), attrs["vcs.commits"])
	assert.Equal(t, "timeout", attrs["error.type"])
}

func TestAttributeFilter_StripsAuthorsAndUnknownKeys(t *testing.T) {
	t.Parallel()

	tp, exporter := filteredProvider(nil)

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	span.SetAttributes(
		attribute.String("vcs.author.email", "dev@example.com"),
		attribute.String("vcs.commit.message", "fix\n\nReported-by: syzbot"),
		attribute.String("email", "dev@example.com"),
		attribute.String("http.method", "GET"),
		attribute.String("vcs.rev", "v4.9"),
	)
	span.End()

	attrs := endedAttrs(t, exporter)
	assert.NotContains(t, attrs, "vcs.author.email")
	assert.NotContains(t, attrs, "vcs.commit.message")
	assert.NotContains(t, attrs, "email")
	assert.NotContains(t, attrs, "http.method")
	assert.Equal(t, "v4.9", attrs["vcs.rev"])
}

func TestAttributeFilter_LogsDroppedKeys(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tp, _ := filteredProvider(logger)

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	span.SetAttributes(attribute.String("user.id", "42"))
	span.End()

	assert.Contains(t, buf.String(), "user.id")
	assert.Contains(t, buf.String(), "dropped")
}

func TestAttributeFilter_Shutdown(t *testing.T) {
	t.Parallel()

	tp, _ := filteredProvider(nil)

	require.NoError(t, tp.ForceFlush(context.Background()))
	require.NoError(t, tp.Shutdown(context.Background()))
}
