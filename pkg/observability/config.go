// Package observability provides OpenTelemetry-based tracing, metrics, and
// structured logging for patchtally runs.
package observability

import (
	"io"
	"log/slog"
)

// AppMode identifies which command the binary is running.
type AppMode string

const (
	// ModeCount is the parameterized counting command.
	ModeCount AppMode = "count"
	// ModePreset is the fixed-configuration counting command.
	ModePreset AppMode = "preset"
	// ModeAggregate is the backport aggregation command.
	ModeAggregate AppMode = "aggregate"
)

const (
	// defaultServiceName is the default OTel service name.
	defaultServiceName = "patchtally"

	// defaultShutdownTimeoutSec is the default shutdown timeout in seconds.
	defaultShutdownTimeoutSec = 5
)

// Config holds all observability configuration.
type Config struct {
	// ServiceName is the OTel resource service name.
	ServiceName string

	// ServiceVersion is the version of the running binary.
	ServiceVersion string

	// Mode identifies the command being run.
	Mode AppMode

	// OTLPEndpoint is the OTLP gRPC collector address (e.g. "localhost:4317").
	// Empty disables export.
	OTLPEndpoint string

	// OTLPHeaders are additional gRPC metadata headers for the OTLP exporter.
	OTLPHeaders map[string]string

	// OTLPInsecure disables TLS for the OTLP gRPC connection.
	OTLPInsecure bool

	// MetricsFile, when set, receives a Prometheus text exposition of all
	// metrics at shutdown.
	MetricsFile string

	// LogLevel controls the minimum slog severity.
	LogLevel slog.Level

	// LogJSON enables JSON-formatted log output.
	LogJSON bool

	// LogWriter receives log output. Nil means stderr.
	LogWriter io.Writer

	// ShutdownTimeoutSec is the maximum seconds to wait for flush on shutdown.
	ShutdownTimeoutSec int
}

// DefaultConfig returns a Config with no exporters and info-level text logs.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeCount,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}
