// Package commands implements CLI command handlers for patchtally.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/patchtally/pkg/config"
	"github.com/Sumatoshi-tech/patchtally/pkg/gitlib"
	"github.com/Sumatoshi-tech/patchtally/pkg/observability"
	"github.com/Sumatoshi-tech/patchtally/pkg/version"
)

// Exit statuses.
const (
	ExitFailure      = 1
	ExitInvalidUsage = 2
)

// ErrInvalidVersionTag is returned when --version does not look like a git tag.
var ErrInvalidVersionTag = errors.New("version has to be a valid git tag (e.g. 'v4.1')")

type (
	oracleOpener func(backend, path string, logger *slog.Logger) (gitlib.Oracle, error)
	obsInitFunc  func(cfg observability.Config) (observability.Providers, error)
	configLoader func(path string) (*config.Config, error)
	clockFunc    func() time.Time
)

// Deps are the collaborators commands reach outside the process through.
type Deps struct {
	OpenOracle        oracleOpener
	InitObservability obsInitFunc
	LoadConfig        configLoader
	Now               clockFunc
}

// DefaultDeps returns the production collaborators.
func DefaultDeps() Deps {
	return Deps{
		OpenOracle:        gitlib.Open,
		InitObservability: observability.Init,
		LoadConfig:        config.LoadConfig,
		Now:               time.Now,
	}
}

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	repo       string
	backend    string
	logLevel   string
	logJSON    bool
}

// NewRootCommand builds the patchtally command tree.
func NewRootCommand(deps Deps) *cobra.Command {
	globals := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "patchtally",
		Short: "Count commits per kernel release line",
		Long: `patchtally counts commits matching a filter across the tags of a
kernel-style repository and tabulates how many were backported into each
long-term support line.

Commands:
  count      Count commits for the mainline and each support line
  preset     Run a named counting preset (default: syzkaller)
  aggregate  Build the line-by-tool backport table from written reports`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&globals.configPath, "config", "", "Config file (default: .patchtally.yaml in CWD or $HOME)")
	flags.StringVar(&globals.repo, "repo", config.DefaultRepositoryPath, "Path to the local git repository")
	flags.StringVar(&globals.backend, "backend", config.DefaultBackend, "Oracle backend: cli or libgit2")
	flags.StringVar(&globals.logLevel, "log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
	flags.BoolVar(&globals.logJSON, "log-json", false, "Emit JSON logs")

	rootCmd.AddCommand(newCountCommand(deps, globals))
	rootCmd.AddCommand(newPresetCommand(deps, globals))
	rootCmd.AddCommand(newAggregateCommand(deps, globals))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// ExitCode maps a command error to a process exit status.
func ExitCode(err error) int {
	if errors.Is(err, ErrInvalidVersionTag) {
		return ExitInvalidUsage
	}

	return ExitFailure
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "patchtally %s\n", version.String())
		},
	}
}

// loadConfig reads configuration and lays the global flags over it. Flags
// win only when set explicitly.
func loadConfig(cmd *cobra.Command, deps Deps, globals *globalOptions) (*config.Config, error) {
	cfg, err := deps.LoadConfig(globals.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	if flags.Changed("repo") {
		cfg.Repository.Path = globals.repo
	}

	if flags.Changed("backend") {
		cfg.Repository.Backend = globals.backend
	}

	if flags.Changed("log-level") {
		cfg.Logging.Level = globals.logLevel
	}

	if flags.Changed("log-json") {
		cfg.Logging.JSON = globals.logJSON
	}

	return cfg, nil
}

// startObservability initializes telemetry for mode and returns a function
// that flushes it within the configured timeout.
func startObservability(
	deps Deps, cfg *config.Config, mode observability.AppMode, logWriter io.Writer,
) (observability.Providers, func(), error) {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.MetricsFile = cfg.Telemetry.MetricsFile
	obsCfg.LogLevel = observability.ParseLevel(cfg.Logging.Level)
	obsCfg.LogJSON = cfg.Logging.JSON
	obsCfg.LogWriter = logWriter
	obsCfg.ShutdownTimeoutSec = cfg.Telemetry.ShutdownTimeoutSec

	providers, err := deps.InitObservability(obsCfg)
	if err != nil {
		return observability.Providers{}, nil, fmt.Errorf("init observability: %w", err)
	}

	if providers.Logger == nil {
		providers.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if providers.Tracer == nil {
		providers.Tracer = tracenoop.NewTracerProvider().Tracer("")
	}

	if providers.Meter == nil {
		providers.Meter = metricnoop.NewMeterProvider().Meter("")
	}

	stop := func() {
		if providers.Shutdown == nil {
			return
		}

		timeout := time.Duration(obsCfg.ShutdownTimeoutSec) * time.Second

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		shutdownErr := providers.Shutdown(ctx)
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}

	return providers, stop, nil
}

var (
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
)
