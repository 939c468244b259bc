// Package telemetry sets up OpenTelemetry tracing for commands, API requests
// and event streams.
package telemetry

import "github.com/felixgeelhaar/studyplan/internal/config"

// Config holds configuration for the tracer
type Config struct {
	ServiceName    string
	ServiceVersion string

	// Enabled selects the SDK provider. When false a noop tracer is used.
	Enabled bool

	// Endpoint is the OTLP/HTTP collector as host:port. Spans are recorded
	// but not exported when it is empty.
	Endpoint string

	// Insecure sends to the collector over plain HTTP.
	Insecure bool

	// SampleRate is the fraction of traces to sample (0.0 to 1.0)
	SampleRate float64
}

// DefaultConfig returns a disabled tracer config.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "studyplan",
		ServiceVersion: "dev",
		SampleRate:     1.0,
	}
}

// FromSettings maps the tracing section of config.yaml.
func FromSettings(t config.TracingConfig, version string) Config {
	cfg := DefaultConfig()
	cfg.Enabled = t.Enabled
	cfg.Endpoint = t.Endpoint
	cfg.Insecure = t.Insecure
	cfg.SampleRate = t.SampleRate
	if version != "" {
		cfg.ServiceVersion = version
	}
	return cfg
}
