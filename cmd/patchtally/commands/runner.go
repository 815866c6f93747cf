package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/patchtally/pkg/catalog"
	"github.com/Sumatoshi-tech/patchtally/pkg/counter"
	"github.com/Sumatoshi-tech/patchtally/pkg/gitlib"
	"github.com/Sumatoshi-tech/patchtally/pkg/observability"
	"github.com/Sumatoshi-tech/patchtally/pkg/report"
)

// countJob describes one counting run. Prefix may include a directory; its
// base name is recorded as the tool name.
type countJob struct {
	prefix   string
	column   string
	manifest string
	opts     counter.Options

	// single, when set, counts only the line of this version into a
	// filtered report.
	single string

	mainline bool
	lines    []string
}

func (j countJob) tool() string { return filepath.Base(j.prefix) }

// countRunner executes count jobs against one oracle.
type countRunner struct {
	catalog *catalog.Catalog
	counter *counter.Counter
	tracer  trace.Tracer
	metrics *observability.CountMetrics
	logger  *slog.Logger
	out     io.Writer
	now     clockFunc
}

func newCountRunner(
	oracle gitlib.Oracle, opts counter.Options, providers observability.Providers,
	metrics *observability.CountMetrics, out io.Writer, now clockFunc,
) *countRunner {
	return &countRunner{
		catalog: catalog.New(oracle),
		counter: counter.New(oracle, opts, providers.Logger),
		tracer:  providers.Tracer,
		metrics: metrics,
		logger:  providers.Logger,
		out:     out,
		now:     now,
	}
}

// run writes every report the job asks for and records each in the manifest
// as soon as it is written.
func (r *countRunner) run(ctx context.Context, job countJob) error {
	manifest, err := report.LoadManifest(job.manifest)
	if err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "counting", "prefix", job.prefix, "filter", job.opts.Filter)

	if job.single != "" {
		return r.countLine(ctx, job, manifest, job.single, report.FilteredFileName(job.prefix, job.single), true)
	}

	if job.mainline {
		err = r.countLine(ctx, job, manifest, report.MainlineLine, report.FileName(job.prefix, report.MainlineLine), false)
		if err != nil {
			return err
		}
	}

	for _, line := range job.lines {
		err = r.countLine(ctx, job, manifest, line, report.FileName(job.prefix, line), false)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *countRunner) countLine(
	ctx context.Context, job countJob, manifest *report.Manifest, line, path string, filtered bool,
) error {
	ctx, span := r.tracer.Start(ctx, "count.line", trace.WithAttributes(
		attribute.String("patchtally.line", line),
		attribute.String("patchtally.tool", job.tool()),
	))
	defer span.End()

	started := r.now()

	r.logger.InfoContext(ctx, "counting line", "line", line)

	versions, err := r.versions(ctx, line)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())

		return err
	}

	series, err := r.counter.CountOrdered(ctx, versions)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())

		return fmt.Errorf("line %s: %w", line, err)
	}

	err = report.Write(path, job.column, series)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())

		return err
	}

	r.metrics.RecordLine(ctx, line, series.Last())
	span.SetAttributes(
		attribute.Int("patchtally.versions", series.Len()),
		attribute.Int("patchtally.total", series.Last()),
	)

	manifest.Record(report.Entry{
		Tool:      job.tool(),
		Line:      line,
		Path:      manifestRelative(job.manifest, path),
		Column:    job.column,
		Filtered:  filtered,
		Versions:  series.Len(),
		Total:     series.Last(),
		WrittenAt: r.now().UTC(),
	})

	err = manifest.Save(job.manifest)
	if err != nil {
		return err
	}

	elapsed := r.now().Sub(started).Round(time.Millisecond)

	if series.Len() == 0 {
		warnColor.Fprintf(r.out, "%s: no versions for %s\n", path, line)
	} else {
		successColor.Fprintf(r.out, "%s: %s versions, %s commits (%s)\n",
			path, humanize.Comma(int64(series.Len())), humanize.Comma(int64(series.Last())), elapsed)
	}

	return nil
}

func (r *countRunner) versions(ctx context.Context, line string) ([]string, error) {
	if line == report.MainlineLine {
		versions, err := r.catalog.Mainline(ctx)
		if err != nil {
			return nil, fmt.Errorf("list mainline versions: %w", err)
		}

		return versions, nil
	}

	versions, err := r.catalog.Line(ctx, line)
	if err != nil {
		return nil, fmt.Errorf("list %s versions: %w", line, err)
	}

	return versions, nil
}

// manifestRelative expresses path relative to the manifest's directory so
// the pair can be moved together.
func manifestRelative(manifestPath, path string) string {
	absManifest, err := filepath.Abs(manifestPath)
	if err != nil {
		return path
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	rel, err := filepath.Rel(filepath.Dir(absManifest), absPath)
	if err != nil {
		return absPath
	}

	return rel
}
