package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/patchtally/pkg/gitlib"
)

const (
	opListTags  = "list_tags"
	opTimestamp = "last_commit_timestamp"
	opRange     = "commits_in_range"
	opAncestor  = "is_ancestor"

	attrRev     = "vcs.rev"
	attrRange   = "vcs.range"
	attrGrep    = "vcs.grep"
	attrCommits = "vcs.commits"
)

// tracedOracle wraps a gitlib.Oracle with one span and one metric sample per query.
type tracedOracle struct {
	next    gitlib.Oracle
	tracer  trace.Tracer
	metrics *CountMetrics
}

// TraceOracle returns an oracle that creates a span per query and records
// query counts and durations. A nil metrics disables recording.
func TraceOracle(tracer trace.Tracer, metrics *CountMetrics, next gitlib.Oracle) gitlib.Oracle {
	return &tracedOracle{next: next, tracer: tracer, metrics: metrics}
}

func (o *tracedOracle) ListTags(ctx context.Context) ([]string, error) {
	ctx, done := o.start(ctx, opListTags)

	tags, err := o.next.ListTags(ctx)
	done(err, attribute.Int("vcs.tags", len(tags)))

	return tags, err
}

func (o *tracedOracle) LastCommitTimestamp(ctx context.Context, rev string) (int64, error) {
	ctx, done := o.start(ctx, opTimestamp, attribute.String(attrRev, rev))

	ts, err := o.next.LastCommitTimestamp(ctx, rev)
	done(err)

	return ts, err
}

func (o *tracedOracle) CommitsInRange(ctx context.Context, rangeExpr string, filter gitlib.LogFilter) ([]gitlib.CommitRef, error) {
	ctx, done := o.start(ctx, opRange,
		attribute.String(attrRange, rangeExpr),
		attribute.String(attrGrep, filter.Grep),
	)

	refs, err := o.next.CommitsInRange(ctx, rangeExpr, filter)
	done(err, attribute.Int(attrCommits, len(refs)))

	return refs, err
}

func (o *tracedOracle) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	ctx, done := o.start(ctx, opAncestor, attribute.String(attrRange, gitlib.Range(ancestor, descendant)))

	ok, err := o.next.IsAncestor(ctx, ancestor, descendant)
	done(err, attribute.Bool("vcs.ancestor", ok))

	return ok, err
}

func (o *tracedOracle) Close() error { return o.next.Close() }

func (o *tracedOracle) start(
	ctx context.Context, op string, attrs ...attribute.KeyValue,
) (context.Context, func(error, ...attribute.KeyValue)) {
	begin := time.Now()

	ctx, span := o.tracer.Start(ctx, "oracle."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)

	return ctx, func(err error, extra ...attribute.KeyValue) {
		span.SetAttributes(extra...)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		span.End()
		o.metrics.RecordOracleCall(ctx, op, err, time.Since(begin))
	}
}
