package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/patchtally/pkg/config"
	"github.com/Sumatoshi-tech/patchtally/pkg/counter"
	"github.com/Sumatoshi-tech/patchtally/pkg/observability"
)

func newPresetCommand(deps Deps, globals *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "preset [name]",
		Short: "Run a named counting preset",
		Long: `Run a fixed counting configuration from the presets section of the
config file. The built-in "syzkaller" preset counts commits referencing
syzkaller.appspotmail.com, merges included, for the mainline and the
v3.2 v3.16 v3.18 v4.4 v4.9 v4.14 v4.17 lines.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := config.DefaultPresetName
			if len(args) == 1 {
				name = args[0]
			}

			cfg, err := loadConfig(cmd, deps, globals)
			if err != nil {
				return err
			}

			preset, err := cfg.Preset(name)
			if err != nil {
				return err
			}

			job := countJob{
				prefix:   preset.Prefix,
				column:   preset.Column,
				manifest: cfg.Count.Manifest,
				opts: counter.Options{
					Filter:        preset.Filter,
					StartZero:     preset.StartZero,
					ExcludeMerges: preset.ExcludeMerges,
				},
				mainline: preset.Mainline,
				lines:    preset.Lines,
			}

			return executeJob(cmd, deps, cfg, observability.ModePreset, job)
		},
	}
}
