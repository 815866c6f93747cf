package config

// Oracle backends.
const (
	BackendCLI     = "cli"
	BackendLibgit2 = "libgit2"
)

// Repository defaults.
const (
	DefaultRepositoryPath = "."
	DefaultBackend        = BackendCLI
)

// Count defaults.
const (
	DefaultCountPrefix        = "patch_data"
	DefaultCountColumn        = "patches"
	DefaultLTSFile            = "lts_versions"
	DefaultManifest           = "manifest.yaml"
	DefaultCountExcludeMerges = true
)

// Syzkaller preset defaults.
const (
	DefaultPresetName      = "syzkaller"
	DefaultSyzkallerFilter = "syzkaller.appspotmail.com"
	DefaultSyzkallerPrefix = "syzkaller"
	DefaultSyzkallerColumn = "syzkaller_patches"
)

// DefaultSyzkallerLines are the support lines counted by the syzkaller preset.
var DefaultSyzkallerLines = []string{"v3.2", "v3.16", "v3.18", "v4.4", "v4.9", "v4.14", "v4.17"}

// Aggregate defaults.
const (
	DefaultAggregateOutput = "LTS_aggregated.csv"
)

// Logging and telemetry defaults.
const (
	DefaultLogLevel           = "info"
	DefaultShutdownTimeoutSec = 5
)
