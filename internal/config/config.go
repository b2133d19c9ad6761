package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// LogFormat selects the log renderer.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// Config holds everything one invocation needs.
type Config struct {
	ReplayFiles []string      `mapstructure:"replay_files"`
	Iterations  int           `mapstructure:"iterations"`
	Concurrency int           `mapstructure:"concurrency"`
	OutFile     string        `mapstructure:"out"`
	Checksum    bool          `mapstructure:"checksum"`
	BodySize    bool          `mapstructure:"bodysize"`
	Timeout     time.Duration `mapstructure:"timeout"`
	WaveRate    float64       `mapstructure:"wave_rate"`
	JSONOutput  bool          `mapstructure:"json_output"`
	HTMLOutput  string        `mapstructure:"html_output"`
	Progress    bool          `mapstructure:"progress"`
	Thresholds  []string      `mapstructure:"thresholds"`
	LogLevel    string        `mapstructure:"log_level"`
	LogFormat   LogFormat     `mapstructure:"log_format"`
	NoColor     bool          `mapstructure:"no_color"`
	ConfigFile  string        `mapstructure:"-"`
	Tracing     TracingConfig `mapstructure:"tracing"`
}

// TracingConfig configures OpenTelemetry export of request spans.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"`     // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"` // defaults to OTEL_SERVICE_NAME, then "webreplay"
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	Propagate   *bool   `mapstructure:"propagate"` // nil means propagate when enabled
}

// Enabled reports whether an exporter endpoint is configured.
func (t TracingConfig) Enabled() bool {
	if strings.TrimSpace(t.Endpoint) != "" {
		return true
	}
	return strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")) != ""
}

// ShouldPropagate reports whether W3C trace headers go out with each request.
func (t TracingConfig) ShouldPropagate() bool {
	if !t.Enabled() {
		return false
	}
	if t.Propagate != nil {
		return *t.Propagate
	}
	return true
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true, "fatal": true, "panic": true,
}

func (c Config) Validate() error {
	var issues []string

	if len(c.ReplayFiles) == 0 {
		issues = append(issues, "at least one replay file is required (use --help for usage information)")
	}
	for idx, f := range c.ReplayFiles {
		if strings.TrimSpace(f) == "" {
			issues = append(issues, fmt.Sprintf("replayfile[%d] is empty", idx))
		}
	}
	if c.Iterations < 1 {
		issues = append(issues, "iterations must be >= 1")
	}
	if c.Concurrency < 1 {
		issues = append(issues, "concurrency must be >= 1")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.WaveRate < 0 {
		issues = append(issues, "wave-rate must be >= 0")
	}
	if level := strings.ToLower(strings.TrimSpace(c.LogLevel)); level != "" && !validLogLevels[level] {
		issues = append(issues, fmt.Sprintf("log level %q is not supported", c.LogLevel))
	}
	switch c.LogFormat {
	case "", LogFormatText, LogFormatJSON:
	default:
		issues = append(issues, fmt.Sprintf("log format %q is not supported (use text or json)", c.LogFormat))
	}

	issues = append(issues, validateTracingConfig(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

// Warnings lists settings that are valid but deserve a notice before the run.
func (c Config) Warnings() []string {
	var warnings []string
	if c.Concurrency > 500 {
		warnings = append(warnings, fmt.Sprintf("WARNING: High concurrency configured (%d concurrent requests per URI). Ensure you have authorization to test the target system.", c.Concurrency))
	}
	if c.Checksum || c.BodySize {
		warnings = append(warnings, "NOTE: body size/checksum measurement reads full bodies; response times are time-to-last-byte for this run.")
	}
	return warnings
}

func validateTracingConfig(t TracingConfig) []string {
	var issues []string
	switch strings.ToLower(strings.TrimSpace(t.Protocol)) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing protocol %q is not supported (use grpc or http)", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, "tracing sample rate must be between 0 and 1")
	}
	return issues
}
