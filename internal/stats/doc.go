// Package stats reduces sample sets into percentile summaries.
//
// Percentiles use the nearest-rank method on a zero-indexed sorted copy of the
// samples: the value for rank p is sorted[floor(p*(n-1))], clamped to the
// valid index range. Rank 0 therefore always yields the minimum and rank 1 the
// maximum, with no interpolation between neighbouring samples.
//
//	summary, err := stats.Summarize(latencies)
//	if err != nil {
//		return err
//	}
//	fmt.Println(summary.P95)
package stats
