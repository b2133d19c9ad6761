package output

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/torosent/webreplay/internal/replay"
)

var (
	bannerTitle = color.New(color.FgGreen, color.Bold)
	bannerError = color.New(color.FgRed, color.Bold)
)

// PrintLoadedReplay announces a successfully loaded replay file.
func PrintLoadedReplay(w io.Writer, def replay.Definition) {
	bannerTitle.Fprintf(w, "Loaded replay file: %s\n", def.Path)
	fmt.Fprintf(w, "  - name: %s\n", def.DisplayName())
	if def.Description != "" {
		fmt.Fprintf(w, "  - description: %s\n", def.Description)
	}
	fmt.Fprintf(w, "  - baseUri: %s\n", def.BaseURI)
	fmt.Fprintf(w, "  - headers: %d\n", len(def.Headers))
	fmt.Fprintf(w, "  - uris: %d\n", len(def.URIs))
}

// PrintLoadError reports every replay file that could not be loaded.
func PrintLoadError(w io.Writer, err error) {
	var loadErr *replay.LoadError
	if errors.As(err, &loadErr) {
		for _, f := range loadErr.Failures {
			bannerError.Fprintf(w, "Could not read %s: ", f.File)
			fmt.Fprintln(w, f.Err)
		}
	}
	bannerError.Fprintln(w, "Could not read all replay files. Exiting.")
}
