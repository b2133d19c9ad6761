package output

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/torosent/webreplay/internal/metrics"
	"github.com/torosent/webreplay/internal/threshold"
)

// PrintReport writes the run-wide summary that follows the per-endpoint
// report. Empty sections are left out.
func PrintReport(w io.Writer, stats metrics.Stats) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "\nReplay summary")
	fmt.Fprintf(tw, "  requests\t%d (%d responded, %d failed)\n", stats.Total, stats.Successes, stats.Failures)
	fmt.Fprintf(tw, "  endpoints\t%d\n", stats.Endpoints)
	fmt.Fprintf(tw, "  bytes\t%d\n", stats.Bytes)
	fmt.Fprintf(tw, "  duration\t%s\n", stats.Duration.Round(time.Millisecond))
	fmt.Fprintf(tw, "  throughput\t%.2f req/s\n", stats.RequestsPerSec)

	if stats.Successes > 0 {
		fmt.Fprintln(tw, "\nLatency")
		for _, row := range []struct {
			name string
			d    time.Duration
		}{
			{"min", stats.MinLatency},
			{"mean", stats.MeanLatency},
			{"p50", stats.P50Latency},
			{"p90", stats.P90Latency},
			{"p95", stats.P95Latency},
			{"p99", stats.P99Latency},
			{"max", stats.MaxLatency},
		} {
			fmt.Fprintf(tw, "  %s\t%s\n", row.name, row.d)
		}
	}

	if len(stats.StatusCodes) > 0 {
		fmt.Fprintln(tw, "\nStatus codes")
		for _, row := range stats.StatusCodes {
			fmt.Fprintf(tw, "  %d\t%s\t%d\n", row.Code, row.Class, row.Count)
		}
	}

	if len(stats.Errors) > 0 {
		fmt.Fprintln(tw, "\nErrors")
		for _, name := range slices.Sorted(maps.Keys(stats.Errors)) {
			fmt.Fprintf(tw, "  %s\t%d\n", name, stats.Errors[name])
		}
	}
}

// PrintThresholdResults lists every threshold evaluation.
func PrintThresholdResults(w io.Writer, results []threshold.Result) {
	if len(results) == 0 {
		return
	}
	fmt.Fprintln(w, "\nThresholds:")
	for _, r := range results {
		mark := "PASS"
		if !r.Pass {
			mark = "FAIL"
		}
		fmt.Fprintf(w, "  [%s] %s on %s (actual %.2f)\n", mark, r.Threshold.Raw, r.Target, r.Actual)
	}
}

// PrintJSONReport outputs the run summary as indented JSON.
func PrintJSONReport(w io.Writer, stats metrics.Stats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}
