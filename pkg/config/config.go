// Package config provides YAML-based configuration for patchtally.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/patchtally/pkg/levenshtein"
)

// maxSuggestDistance bounds how far a misspelt preset name may be from a
// configured one and still get a suggestion.
const maxSuggestDistance = 2

// Sentinel validation errors.
var (
	ErrInvalidBackend   = errors.New("invalid oracle backend")
	ErrEmptyPrefix      = errors.New("report prefix must not be empty")
	ErrEmptyColumn      = errors.New("count column must not be empty")
	ErrInvalidPreset    = errors.New("invalid preset")
	ErrUnknownPreset    = errors.New("unknown preset")
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrInvalidTimeout   = errors.New("shutdown timeout must be positive")
	ErrEmptyManifest    = errors.New("manifest path must not be empty")
	ErrEmptyAggregation = errors.New("aggregate output must not be empty")
)

// Config holds all configuration for patchtally.
type Config struct {
	Repository RepositoryConfig        `mapstructure:"repository"`
	Count      CountConfig             `mapstructure:"count"`
	Presets    map[string]PresetConfig `mapstructure:"presets"`
	Aggregate  AggregateConfig         `mapstructure:"aggregate"`
	Logging    LoggingConfig           `mapstructure:"logging"`
	Telemetry  TelemetryConfig         `mapstructure:"telemetry"`
}

// RepositoryConfig selects the repository and the oracle backend.
type RepositoryConfig struct {
	Path    string `mapstructure:"path"`
	Backend string `mapstructure:"backend"`
}

// CountConfig holds defaults for the count command.
type CountConfig struct {
	Filter        string `mapstructure:"filter"`
	Prefix        string `mapstructure:"prefix"`
	Column        string `mapstructure:"column"`
	LTSFile       string `mapstructure:"lts_file"`
	Manifest      string `mapstructure:"manifest"`
	ShaFile       string `mapstructure:"sha_file"`
	StartZero     bool   `mapstructure:"start_zero"`
	ExcludeMerges bool   `mapstructure:"exclude_merges"`
	CheckAncestry bool   `mapstructure:"check_ancestry"`
}

// PresetConfig is a fixed counting configuration run by name.
type PresetConfig struct {
	Filter        string   `mapstructure:"filter"`
	Prefix        string   `mapstructure:"prefix"`
	Column        string   `mapstructure:"column"`
	Lines         []string `mapstructure:"lines"`
	Mainline      bool     `mapstructure:"mainline"`
	ExcludeMerges bool     `mapstructure:"exclude_merges"`
	StartZero     bool     `mapstructure:"start_zero"`
}

// AggregateConfig holds defaults for the aggregate command.
type AggregateConfig struct {
	LTSFile  string `mapstructure:"lts_file"`
	Manifest string `mapstructure:"manifest"`
	Output   string `mapstructure:"output"`
	Chart    string `mapstructure:"chart"`
	Quiet    bool   `mapstructure:"quiet"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig holds OpenTelemetry and metrics export configuration.
type TelemetryConfig struct {
	OTLPEndpoint       string `mapstructure:"otlp_endpoint"`
	OTLPHeaders        string `mapstructure:"otlp_headers"`
	OTLPInsecure       bool   `mapstructure:"otlp_insecure"`
	MetricsFile        string `mapstructure:"metrics_file"`
	ShutdownTimeoutSec int    `mapstructure:"shutdown_timeout_sec"`
}

var (
	validBackends  = []string{BackendCLI, BackendLibgit2}
	validLogLevels = []string{"debug", "info", "warn", "error"}
)

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if !slices.Contains(validBackends, c.Repository.Backend) {
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.Repository.Backend)
	}

	if c.Count.Prefix == "" {
		return ErrEmptyPrefix
	}

	if c.Count.Column == "" {
		return ErrEmptyColumn
	}

	if c.Count.Manifest == "" || c.Aggregate.Manifest == "" {
		return ErrEmptyManifest
	}

	if c.Aggregate.Output == "" {
		return ErrEmptyAggregation
	}

	for name, preset := range c.Presets {
		err := preset.validate()
		if err != nil {
			return fmt.Errorf("%w %q: %w", ErrInvalidPreset, name, err)
		}
	}

	if !slices.Contains(validLogLevels, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	if c.Telemetry.ShutdownTimeoutSec <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTimeout, c.Telemetry.ShutdownTimeoutSec)
	}

	return nil
}

func (p PresetConfig) validate() error {
	if p.Prefix == "" {
		return ErrEmptyPrefix
	}

	if p.Column == "" {
		return ErrEmptyColumn
	}

	return nil
}

// Preset returns the named preset.
func (c *Config) Preset(name string) (PresetConfig, error) {
	preset, ok := c.Presets[name]
	if !ok {
		if hint, found := levenshtein.Closest(name, c.PresetNames(), maxSuggestDistance); found {
			return PresetConfig{}, fmt.Errorf("%w: %q (did you mean %q?)", ErrUnknownPreset, name, hint)
		}

		return PresetConfig{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}

	return preset, nil
}

// PresetNames returns the configured preset names, sorted.
func (c *Config) PresetNames() []string {
	names := make([]string, 0, len(c.Presets))
	for name := range c.Presets {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}
