package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".patchtally"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for patchtally settings.
const envPrefix = "PATCHTALLY"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("repository.path", DefaultRepositoryPath)
	viperCfg.SetDefault("repository.backend", DefaultBackend)

	viperCfg.SetDefault("count.filter", "")
	viperCfg.SetDefault("count.prefix", DefaultCountPrefix)
	viperCfg.SetDefault("count.column", DefaultCountColumn)
	viperCfg.SetDefault("count.lts_file", DefaultLTSFile)
	viperCfg.SetDefault("count.manifest", DefaultManifest)
	viperCfg.SetDefault("count.sha_file", "")
	viperCfg.SetDefault("count.start_zero", false)
	viperCfg.SetDefault("count.exclude_merges", DefaultCountExcludeMerges)
	viperCfg.SetDefault("count.check_ancestry", false)

	viperCfg.SetDefault("presets."+DefaultPresetName+".filter", DefaultSyzkallerFilter)
	viperCfg.SetDefault("presets."+DefaultPresetName+".prefix", DefaultSyzkallerPrefix)
	viperCfg.SetDefault("presets."+DefaultPresetName+".column", DefaultSyzkallerColumn)
	viperCfg.SetDefault("presets."+DefaultPresetName+".lines", DefaultSyzkallerLines)
	viperCfg.SetDefault("presets."+DefaultPresetName+".mainline", true)
	viperCfg.SetDefault("presets."+DefaultPresetName+".exclude_merges", false)
	viperCfg.SetDefault("presets."+DefaultPresetName+".start_zero", false)

	viperCfg.SetDefault("aggregate.lts_file", DefaultLTSFile)
	viperCfg.SetDefault("aggregate.manifest", DefaultManifest)
	viperCfg.SetDefault("aggregate.output", DefaultAggregateOutput)
	viperCfg.SetDefault("aggregate.chart", "")
	viperCfg.SetDefault("aggregate.quiet", false)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", false)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.metrics_file", "")
	viperCfg.SetDefault("telemetry.shutdown_timeout_sec", DefaultShutdownTimeoutSec)
}
