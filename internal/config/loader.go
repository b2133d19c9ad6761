package config

import (
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces the environment variables the loader reads,
// e.g. WEBREPLAY_ITERATIONS or WEBREPLAY_TRACING_ENDPOINT.
const EnvPrefix = "WEBREPLAY"

// envKeys are the settings that may be supplied through the environment.
var envKeys = []string{
	"replay_files", "iterations", "concurrency", "out", "checksum", "bodysize",
	"timeout", "wave_rate", "json_output", "html_output", "progress", "thresholds",
	"log_level", "log_format", "no_color",
	"tracing.endpoint", "tracing.protocol", "tracing.service_name",
	"tracing.sample_rate", "tracing.insecure", "tracing.propagate",
}

// Loader handles loading configuration from files, the environment and
// command-line arguments.
type Loader struct {
	lookupEnv func(string) (string, bool)
}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{lookupEnv: os.LookupEnv}
}

// Load parses command-line arguments, the environment and an optional
// configuration file to produce a Config. Precedence, lowest first:
// defaults, config file, environment, flags.
func (l Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	configPath := flagSet.Lookup("config").Value.String()
	settings, err := l.readSettings(configPath)
	if err != nil {
		return nil, err
	}

	// Nothing to go on at all: show usage.
	if len(args) == 0 && len(settings) == 0 {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	cfg := &Config{
		Iterations:  1,
		Concurrency: 1,
		Timeout:     defaultTimeout,
		LogLevel:    "info",
		LogFormat:   LogFormatText,
		ConfigFile:  configPath,
		Tracing: TracingConfig{
			Protocol:   "grpc",
			SampleRate: defaultSampleRate,
		},
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	// Positional arguments are replay files too: webreplay -i 3 replays/*.json
	cfg.ReplayFiles = append(cfg.ReplayFiles, flagSet.Args()...)
	for i, f := range cfg.ReplayFiles {
		cfg.ReplayFiles[i] = strings.TrimSpace(f)
	}
	cfg.OutFile = strings.TrimSpace(cfg.OutFile)
	cfg.LogFormat = LogFormat(strings.ToLower(strings.TrimSpace(string(cfg.LogFormat))))

	return cfg, nil
}

// readSettings merges the optional config file with the WEBREPLAY_
// environment, the latter taking precedence.
func (l Loader) readSettings(path string) (map[string]interface{}, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}
	l.overlayEnv(v)
	return v.AllSettings(), nil
}

// overlayEnv copies every set WEBREPLAY_ variable over the file settings.
// Unset variables are skipped so that AllSettings reflects real input only.
func (l Loader) overlayEnv(v *viper.Viper) {
	lookup := l.lookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, key := range envKeys {
		name := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		val, ok := lookup(name)
		if !ok {
			continue
		}
		v.Set(key, val)
	}
}

// applyConfigSettings applies settings from a config file and the environment
// to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	return applySettings(cfg, settings, configSettings)
}
