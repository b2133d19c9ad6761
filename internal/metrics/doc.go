// Package metrics keeps run-wide live counters for a replay.
//
// A [Collector] is plugged into the runner as an observer and sees every
// request as it completes, whichever endpoint it belongs to. It feeds the
// progress line and the report footers:
//
//	collector := metrics.NewCollector()
//	orch := runner.NewOrchestrator(client, runner.RunOptions{Observer: collector})
//	...
//	stats := collector.Stats(time.Since(start))
//
// Latencies go into an HDR histogram (1µs to 60s, 3 significant figures), so
// the percentiles reported here are approximations. Per-endpoint summaries are
// always computed exactly by the stats package.
package metrics
