package replay

import (
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/go-faster/errors"
)

// ExpandPatterns resolves wildcards in the file part of each pattern and
// returns every path sorted. Plain paths pass through unchanged; a wildcard
// matching nothing contributes nothing.
func ExpandPatterns(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if !strings.ContainsAny(filepath.Base(pattern), "*?[") {
			files = append(files, pattern)
			continue
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "expand %q", pattern)
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.IsDir() {
				continue
			}
			files = append(files, m)
		}
	}
	slices.Sort(files)
	return files, nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)|%([A-Za-z_][A-Za-z0-9_().]*)%`)

// ExpandEnv substitutes $VAR, ${VAR} and %VAR% references using lookup.
// References to unset variables are kept verbatim.
func ExpandEnv(s string, lookup func(string) (string, bool)) string {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		m := envRef.FindStringSubmatch(ref)
		name := m[1] + m[2] + m[3]
		if val, ok := lookup(name); ok {
			return val
		}
		return ref
	})
}
