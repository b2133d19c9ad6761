// Package runner replays HTTP GET targets and turns the timings into
// per-endpoint results.
//
// Three layers do the work:
//   - [Executor] issues one request and produces a [RequestSample].
//   - [RunBatch] fans one target out to C concurrent executions and joins
//     them, failing as a whole when any member fails.
//   - [Orchestrator] walks the targets of a [Replay] strictly in order, runs
//     the configured number of sequential batches per target, reduces the
//     samples to a percentile summary and hands one [EndpointResult] to the
//     caller before moving on.
//
// # Basic Usage
//
//	orch := runner.NewOrchestrator(client, runner.RunOptions{
//		Iterations:  10,
//		Concurrency: 4,
//	})
//	err := orch.Run(ctx, runner.Replay{
//		BaseURI:  "https://example.com/",
//		Targets:  []string{"index.html", "about.html"},
//		Requests: builder,
//	}, func(res runner.EndpointResult) error {
//		fmt.Println(res.Target, res.ResponseTimes.P95)
//		return nil
//	})
//
// # Timing
//
// Without body measurement a sample's response time is time to first byte and
// the body is never read. With [RunOptions.MeasureBodySize] or
// [RunOptions.MeasureChecksum] the whole body is read and the response time
// becomes time to last byte.
//
// # Errors
//
// Transport failures surface as [*RequestFailure]. The orchestrator stops the
// run on the first failed batch and returns a [*BatchFailure] naming the
// replay, target and iteration. HTTP status codes are never failures.
package runner
