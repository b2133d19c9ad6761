package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/cast"
)

// setting binds one field of C to the keys it may appear under in a config
// file or the environment. Keys match case-insensitively, ignoring "_" and "-".
type setting[C any] struct {
	keys  []string
	apply func(dst *C, raw any) error
}

// bind builds the apply func of a setting from a converter and a field selector.
func bind[C, T any](conv func(any) (T, error), field func(*C) *T) func(*C, any) error {
	return func(dst *C, raw any) error {
		v, err := conv(raw)
		if err != nil {
			return err
		}
		*field(dst) = v
		return nil
	}
}

var configSettings = []setting[Config]{
	{[]string{"replay_files", "replay_file"}, bind(toStringList, func(c *Config) *[]string { return &c.ReplayFiles })},
	{[]string{"iterations"}, bind(cast.ToIntE, func(c *Config) *int { return &c.Iterations })},
	{[]string{"concurrency"}, bind(cast.ToIntE, func(c *Config) *int { return &c.Concurrency })},
	{[]string{"out", "out_file"}, bind(toTrimmedString, func(c *Config) *string { return &c.OutFile })},
	{[]string{"checksum"}, bind(cast.ToBoolE, func(c *Config) *bool { return &c.Checksum })},
	{[]string{"bodysize"}, bind(cast.ToBoolE, func(c *Config) *bool { return &c.BodySize })},
	{[]string{"timeout"}, bind(toDuration, func(c *Config) *time.Duration { return &c.Timeout })},
	{[]string{"wave_rate"}, bind(cast.ToFloat64E, func(c *Config) *float64 { return &c.WaveRate })},
	{[]string{"json_output"}, bind(cast.ToBoolE, func(c *Config) *bool { return &c.JSONOutput })},
	{[]string{"html_output"}, bind(toTrimmedString, func(c *Config) *string { return &c.HTMLOutput })},
	{[]string{"progress"}, bind(cast.ToBoolE, func(c *Config) *bool { return &c.Progress })},
	{[]string{"thresholds"}, bind(toStringList, func(c *Config) *[]string { return &c.Thresholds })},
	{[]string{"log_level"}, bind(toTrimmedString, func(c *Config) *string { return &c.LogLevel })},
	{[]string{"log_format"}, bind(toLogFormat, func(c *Config) *LogFormat { return &c.LogFormat })},
	{[]string{"no_color"}, bind(cast.ToBoolE, func(c *Config) *bool { return &c.NoColor })},
	{[]string{"tracing"}, func(c *Config, raw any) error {
		nested, err := cast.ToStringMapE(raw)
		if err != nil {
			return err
		}
		return applySettings(&c.Tracing, nested, tracingSettings)
	}},
}

var tracingSettings = []setting[TracingConfig]{
	{[]string{"endpoint"}, bind(toTrimmedString, func(t *TracingConfig) *string { return &t.Endpoint })},
	{[]string{"protocol"}, bind(toLowerString, func(t *TracingConfig) *string { return &t.Protocol })},
	{[]string{"service_name"}, bind(toTrimmedString, func(t *TracingConfig) *string { return &t.ServiceName })},
	{[]string{"sample_rate"}, bind(cast.ToFloat64E, func(t *TracingConfig) *float64 { return &t.SampleRate })},
	{[]string{"insecure"}, bind(cast.ToBoolE, func(t *TracingConfig) *bool { return &t.Insecure })},
	{[]string{"propagate"}, func(t *TracingConfig, raw any) error {
		v, err := cast.ToBoolE(raw)
		if err != nil {
			return err
		}
		t.Propagate = &v
		return nil
	}},
}

// applySettings applies every entry of table found in raw to dst. Blank
// values count as unset.
func applySettings[C any](dst *C, raw map[string]any, table []setting[C]) error {
	index := make(map[string]any, len(raw))
	for k, v := range raw {
		index[normalizeKey(k)] = v
	}
	for _, s := range table {
		val, ok := lookup(index, s.keys)
		if !ok || isBlank(val) {
			continue
		}
		if err := s.apply(dst, val); err != nil {
			return errors.Wrap(err, s.keys[0])
		}
	}
	return nil
}

func lookup(index map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := index[normalizeKey(k)]; ok {
			return v, true
		}
	}
	return nil, false
}

var keySeparators = strings.NewReplacer("_", "", "-", "")

func normalizeKey(k string) string {
	return keySeparators.Replace(strings.ToLower(strings.TrimSpace(k)))
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func toTrimmedString(v any) (string, error) {
	s, err := cast.ToStringE(v)
	return strings.TrimSpace(s), err
}

func toLowerString(v any) (string, error) {
	s, err := toTrimmedString(v)
	return strings.ToLower(s), err
}

func toLogFormat(v any) (LogFormat, error) {
	s, err := toLowerString(v)
	return LogFormat(s), err
}

// toStringList accepts YAML/JSON lists and the comma separated form used in
// environment variables.
func toStringList(v any) ([]string, error) {
	s, ok := v.(string)
	if !ok {
		return cast.ToStringSliceE(v)
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, nil
}

// toDuration reads Go duration strings; bare numbers are seconds.
func toDuration(v any) (time.Duration, error) {
	switch d := v.(type) {
	case time.Duration:
		return d, nil
	case string:
		d = strings.TrimSpace(d)
		if secs, err := strconv.ParseFloat(d, 64); err == nil {
			return time.Duration(secs * float64(time.Second)), nil
		}
		return time.ParseDuration(d)
	}
	secs, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs * float64(time.Second)), nil
}
