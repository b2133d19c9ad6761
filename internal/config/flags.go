package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	defaultTimeout    = 100 * time.Second
	defaultSampleRate = 1.0
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webreplay [flags] [replay files...]",
		Short: "Replays the URIs from replay files and reports response time statistics in CSV format",
		Long: "Web Replay - replays the URIs from the replay files and calculates response time statistics in CSV format.\n" +
			"Think of this as ab on steroids.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Replay flags
	flags.StringSliceP("replayfile", "r", nil, "Path to a replay file; the file name may contain wildcards, e.g. ./replays/*.json (repeatable)")
	flags.IntP("iterations", "i", 1, "The number of iterations for each URI")
	flags.IntP("concurrency", "c", 1, "The number of concurrent requests for each URI")
	flags.Bool("checksum", false, "Calculate the MD5 checksum of response bodies (affects metrics like requests/sec)")
	flags.Bool("bodysize", false, "Calculate response body sizes (may affect metrics like requests/sec)")
	flags.Duration("timeout", defaultTimeout, "Per-request timeout")
	flags.Float64("wave-rate", 0, "Maximum iteration waves started per second (0 means unlimited)")

	// Output flags
	flags.StringP("out", "o", "", "Path to the output CSV file")
	flags.Bool("json-output", false, "Emit JSON lines instead of CSV")
	flags.String("html-output", "", "Write an HTML summary report to the specified file path")
	flags.Bool("progress", false, "Always show the live progress line on stderr")
	flags.StringSlice("threshold", nil, "Per-endpoint assertion (repeatable, e.g. 'p95 < 500')")
	flags.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	flags.String("log-format", string(LogFormatText), "Log format (text or json)")
	flags.Bool("no-color", false, "Disable coloured console output")
	flags.String("config", "", "Path to configuration file (JSON, YAML or TOML)")

	// Tracing flags
	flags.String("tracing-endpoint", "", "OTLP collector endpoint (host:port); tracing is off when empty")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.String("tracing-service-name", "", "Service name reported on spans")
	flags.Float64("tracing-sample-rate", defaultSampleRate, "Fraction of requests to sample (0.0-1.0)")
	flags.Bool("tracing-insecure", false, "Use an insecure connection to the collector")
	flags.Bool("tracing-propagate", true, "Send W3C trace context headers with each request")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n\nUsage: %s\n\nFlags:\n", cmd.Long, cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file and environment.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("replayfile") {
		val, err := fs.GetStringSlice("replayfile")
		if err != nil {
			return err
		}
		cfg.ReplayFiles = val
	}
	if fs.Changed("iterations") {
		val, err := fs.GetInt("iterations")
		if err != nil {
			return err
		}
		cfg.Iterations = val
	}
	if fs.Changed("concurrency") {
		val, err := fs.GetInt("concurrency")
		if err != nil {
			return err
		}
		cfg.Concurrency = val
	}
	if fs.Changed("checksum") {
		val, err := fs.GetBool("checksum")
		if err != nil {
			return err
		}
		cfg.Checksum = val
	}
	if fs.Changed("bodysize") {
		val, err := fs.GetBool("bodysize")
		if err != nil {
			return err
		}
		cfg.BodySize = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("wave-rate") {
		val, err := fs.GetFloat64("wave-rate")
		if err != nil {
			return err
		}
		cfg.WaveRate = val
	}
	if fs.Changed("out") {
		val, err := fs.GetString("out")
		if err != nil {
			return err
		}
		cfg.OutFile = strings.TrimSpace(val)
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("html-output") {
		val, err := fs.GetString("html-output")
		if err != nil {
			return err
		}
		cfg.HTMLOutput = strings.TrimSpace(val)
	}
	if fs.Changed("progress") {
		val, err := fs.GetBool("progress")
		if err != nil {
			return err
		}
		cfg.Progress = val
	}
	if fs.Changed("threshold") {
		val, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}
	if fs.Changed("log-level") {
		val, err := fs.GetString("log-level")
		if err != nil {
			return err
		}
		cfg.LogLevel = val
	}
	if fs.Changed("log-format") {
		val, err := fs.GetString("log-format")
		if err != nil {
			return err
		}
		cfg.LogFormat = LogFormat(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("no-color") {
		val, err := fs.GetBool("no-color")
		if err != nil {
			return err
		}
		cfg.NoColor = val
	}
	return applyTracingFlagOverrides(&cfg.Tracing, fs)
}

func applyTracingFlagOverrides(tc *TracingConfig, fs *pflag.FlagSet) error {
	if fs.Changed("tracing-endpoint") {
		val, err := fs.GetString("tracing-endpoint")
		if err != nil {
			return err
		}
		tc.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-protocol") {
		val, err := fs.GetString("tracing-protocol")
		if err != nil {
			return err
		}
		tc.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("tracing-service-name") {
		val, err := fs.GetString("tracing-service-name")
		if err != nil {
			return err
		}
		tc.ServiceName = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		tc.SampleRate = val
	}
	if fs.Changed("tracing-insecure") {
		val, err := fs.GetBool("tracing-insecure")
		if err != nil {
			return err
		}
		tc.Insecure = val
	}
	if fs.Changed("tracing-propagate") {
		val, err := fs.GetBool("tracing-propagate")
		if err != nil {
			return err
		}
		tc.Propagate = &val
	}
	return nil
}
