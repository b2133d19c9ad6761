package replay

import (
	"net/url"
	"strings"

	"github.com/go-faster/errors"
)

// Definition is one replay file.
type Definition struct {
	Path        string            `json:"-" yaml:"-"`
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description" yaml:"description"`
	BaseURI     string            `json:"baseUri" yaml:"baseUri"`
	Headers     map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	URIs        []string          `json:"uris" yaml:"uris"`
}

// Validate checks that the definition can be replayed.
func (d Definition) Validate() error {
	base := strings.TrimSpace(d.BaseURI)
	if base == "" {
		return errors.New("baseUri is required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return errors.Wrapf(err, "baseUri %q", base)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("baseUri %q must be an absolute http or https URL", base)
	}
	if u.Host == "" {
		return errors.Errorf("baseUri %q has no host", base)
	}
	return nil
}

// DisplayName returns the name, falling back to the file path.
func (d Definition) DisplayName() string {
	if strings.TrimSpace(d.Name) != "" {
		return d.Name
	}
	return d.Path
}

// LoadError reports every replay file that could not be loaded.
type LoadError struct {
	Failures []FileError
}

// FileError is the failure of a single file.
type FileError struct {
	File string
	Err  error
}

func (e FileError) Error() string {
	return e.File + ": " + e.Err.Error()
}

func (e FileError) Unwrap() error { return e.Err }

func (e *LoadError) Error() string {
	if len(e.Failures) == 1 {
		return "could not read replay file " + e.Failures[0].Error()
	}
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return "could not read all replay files: " + strings.Join(parts, "; ")
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *LoadError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// ErrNoReplayFiles is returned when the patterns matched nothing.
var ErrNoReplayFiles = errors.New("no suitable replay files")
