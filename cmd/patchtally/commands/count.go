package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/patchtally/pkg/config"
	"github.com/Sumatoshi-tech/patchtally/pkg/counter"
	"github.com/Sumatoshi-tech/patchtally/pkg/observability"
)

// CountCommand holds the flags of the count command.
type CountCommand struct {
	filter        string
	prefix        string
	version       string
	shaFile       string
	startZero     bool
	ltsFile       string
	column        string
	checkAncestry bool
	manifest      string
	metricsFile   string

	deps    Deps
	globals *globalOptions
}

func newCountCommand(deps Deps, globals *globalOptions) *cobra.Command {
	cc := &CountCommand{deps: deps, globals: globals}

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count matching commits per release line",
		Long: `Count commits matching --filter across release tags.

Without --version, writes <prefix>_zero.csv for the mainline releases and
<prefix>_<line>.csv for every line listed in the lts_versions file. With
--version, writes <prefix>_<version>_filtered.csv for that line only.`,
		Args: cobra.NoArgs,
		RunE: cc.run,
	}

	cmd.Flags().StringVarP(&cc.filter, "filter", "f", "", "Only count commits whose message matches this pattern")
	cmd.Flags().StringVarP(&cc.prefix, "prefix", "p", config.DefaultCountPrefix, "Report file name prefix")
	cmd.Flags().StringVarP(&cc.version, "version", "V", "", "Count a single line (e.g. v4.1) into a filtered report")
	cmd.Flags().StringVarP(&cc.shaFile, "sha_file", "s", "", "File of commit ids (one per line); all others are ignored")
	cmd.Flags().BoolVarP(&cc.startZero, "start_zero", "0", false, "Start each series at zero instead of the first version's count")
	cmd.Flags().StringVar(&cc.ltsFile, "lts-file", config.DefaultLTSFile, "File listing the support lines to count")
	cmd.Flags().StringVar(&cc.column, "column", config.DefaultCountColumn, "Name of the count column in reports")
	cmd.Flags().BoolVar(&cc.checkAncestry, "check-ancestry", false, "Fail when a version does not descend from its predecessor")
	cmd.Flags().StringVar(&cc.manifest, "manifest", config.DefaultManifest, "Manifest recording written reports")
	cmd.Flags().StringVar(&cc.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")

	return cmd
}

// applyConfig fills flags the user did not set from the configuration.
func (cc *CountCommand) applyConfig(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	pick := func(name string, target *string, value string) {
		if !flags.Changed(name) {
			*target = value
		}
	}

	pick("filter", &cc.filter, cfg.Count.Filter)
	pick("prefix", &cc.prefix, cfg.Count.Prefix)
	pick("sha_file", &cc.shaFile, cfg.Count.ShaFile)
	pick("lts-file", &cc.ltsFile, cfg.Count.LTSFile)
	pick("column", &cc.column, cfg.Count.Column)
	pick("manifest", &cc.manifest, cfg.Count.Manifest)

	if !flags.Changed("start_zero") {
		cc.startZero = cfg.Count.StartZero
	}

	if !flags.Changed("check-ancestry") {
		cc.checkAncestry = cfg.Count.CheckAncestry
	}

	if flags.Changed("metrics-file") {
		cfg.Telemetry.MetricsFile = cc.metricsFile
	}
}

func (cc *CountCommand) run(cmd *cobra.Command, _ []string) error {
	if cc.version != "" && !strings.HasPrefix(cc.version, "v") {
		return fmt.Errorf("%w: %q", ErrInvalidVersionTag, cc.version)
	}

	cfg, err := loadConfig(cmd, cc.deps, cc.globals)
	if err != nil {
		return err
	}

	cc.applyConfig(cmd, cfg)

	opts := counter.Options{
		Filter:        cc.filter,
		StartZero:     cc.startZero,
		ExcludeMerges: cfg.Count.ExcludeMerges,
		CheckAncestry: cc.checkAncestry,
	}

	if cc.shaFile != "" {
		opts.AllowList, err = counter.LoadAllowList(cc.shaFile)
		if err != nil {
			return err
		}
	}

	job := countJob{
		prefix:   cc.prefix,
		column:   cc.column,
		manifest: cc.manifest,
		opts:     opts,
		single:   cc.version,
		mainline: true,
	}

	if job.single == "" {
		job.lines, err = config.LoadLines(cc.ltsFile)
		if err != nil {
			return err
		}
	}

	return executeJob(cmd, cc.deps, cfg, observability.ModeCount, job)
}

// executeJob opens the oracle with telemetry around it and runs job.
func executeJob(
	cmd *cobra.Command, deps Deps, cfg *config.Config, mode observability.AppMode, job countJob,
) error {
	providers, stop, err := startObservability(deps, cfg, mode, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer stop()

	metrics, err := observability.NewCountMetrics(providers.Meter)
	if err != nil {
		return err
	}

	oracle, err := deps.OpenOracle(cfg.Repository.Backend, cfg.Repository.Path, providers.Logger)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	defer oracle.Close()

	traced := observability.TraceOracle(providers.Tracer, metrics, oracle)
	runner := newCountRunner(traced, job.opts, providers, metrics, cmd.OutOrStdout(), deps.Now)

	ctx, span := providers.Tracer.Start(cmd.Context(), "patchtally."+string(mode))
	defer span.End()

	return runner.run(ctx, job)
}
