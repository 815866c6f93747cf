package commands

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/patchtally/pkg/aggregate"
	"github.com/Sumatoshi-tech/patchtally/pkg/config"
	"github.com/Sumatoshi-tech/patchtally/pkg/observability"
	"github.com/Sumatoshi-tech/patchtally/pkg/report"
)

type aggregateOptions struct {
	ltsFile  string
	manifest string
	output   string
	chart    string
	diff     bool
	quiet    bool
}

func newAggregateCommand(deps Deps, globals *globalOptions) *cobra.Command {
	opts := &aggregateOptions{}

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Tabulate backports per support line and tool",
		Long: `Read the reports recorded in the manifest for every line in the
lts_versions file and write the growth of each report's count (last row
minus first row) into a version-by-tool table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, deps, globals)
			if err != nil {
				return err
			}

			opts.applyConfig(cmd, cfg)

			return runAggregate(cmd, deps, cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ltsFile, "lts-file", config.DefaultLTSFile, "File listing the support lines to aggregate")
	cmd.Flags().StringVar(&opts.manifest, "manifest", config.DefaultManifest, "Manifest recording written reports")
	cmd.Flags().StringVar(&opts.output, "output", config.DefaultAggregateOutput, "Aggregated CSV output path")
	cmd.Flags().StringVar(&opts.chart, "chart", "", "Also write an HTML bar chart to this path")
	cmd.Flags().BoolVar(&opts.diff, "diff", false, "Print rows that changed since the previous output")
	cmd.Flags().BoolVar(&opts.quiet, "quiet", false, "Do not print the table")

	return cmd
}

func (o *aggregateOptions) applyConfig(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if !flags.Changed("lts-file") {
		o.ltsFile = cfg.Aggregate.LTSFile
	}

	if !flags.Changed("manifest") {
		o.manifest = cfg.Aggregate.Manifest
	}

	if !flags.Changed("output") {
		o.output = cfg.Aggregate.Output
	}

	if !flags.Changed("chart") {
		o.chart = cfg.Aggregate.Chart
	}

	if !flags.Changed("quiet") {
		o.quiet = cfg.Aggregate.Quiet
	}
}

func runAggregate(cmd *cobra.Command, deps Deps, cfg *config.Config, opts *aggregateOptions) error {
	providers, stop, err := startObservability(deps, cfg, observability.ModeAggregate, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer stop()

	_, span := providers.Tracer.Start(cmd.Context(), "patchtally.aggregate")
	defer span.End()

	lines, err := config.LoadLines(opts.ltsFile)
	if err != nil {
		return err
	}

	manifest, err := report.LoadManifest(opts.manifest)
	if err != nil {
		return err
	}

	matrix, err := aggregate.Build(lines, manifest, providers.Logger)
	if err != nil {
		return err
	}

	previous, err := previousOutput(opts)
	if err != nil {
		return err
	}

	err = aggregate.WriteCSV(opts.output, matrix)
	if err != nil {
		return err
	}

	if opts.chart != "" {
		err = aggregate.WriteChart(opts.chart, matrix)
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()

	if !opts.quiet {
		aggregate.Render(out, matrix)
	}

	if opts.diff {
		err = printChanges(out, previous, matrix)
		if err != nil {
			return err
		}
	}

	successColor.Fprintf(out, "%s: %s lines, %s tools\n",
		opts.output, humanize.Comma(int64(len(lines))), humanize.Comma(int64(len(matrix.Tools()))))

	return nil
}

// previousOutput returns the current contents of the output file when a diff
// was requested. A missing file counts as empty.
func previousOutput(opts *aggregateOptions) (string, error) {
	if !opts.diff {
		return "", nil
	}

	data, err := os.ReadFile(opts.output)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("read previous output: %w", err)
	}

	return string(data), nil
}

func printChanges(w io.Writer, previous string, matrix *aggregate.Matrix) error {
	var buf bytes.Buffer

	err := aggregate.Encode(&buf, matrix)
	if err != nil {
		return err
	}

	changes := aggregate.Changes(previous, buf.String())
	if len(changes) == 0 {
		fmt.Fprintln(w, "no changes")

		return nil
	}

	for _, row := range changes {
		c := successColor
		if strings.HasPrefix(row, "-") {
			c = warnColor
		}

		c.Fprintln(w, row)
	}

	return nil
}
