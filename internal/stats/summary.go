package stats

import (
	"cmp"
	"time"
)

// Summary is the six-point reduction of a sample set.
// Min <= P50 <= P75 <= P90 <= P95 <= Max under the ordering used to build it.
type Summary[T any] struct {
	Min T
	P50 T
	P75 T
	P90 T
	P95 T
	Max T
}

// SummarizeFunc builds a Summary using a custom ordering.
func SummarizeFunc[T any](samples []T, compare func(a, b T) int) (Summary[T], error) {
	values, err := PercentilesFunc(samples, StandardRanks, compare)
	if err != nil {
		return Summary[T]{}, err
	}
	return Summary[T]{
		Min: values[0],
		P50: values[1],
		P75: values[2],
		P90: values[3],
		P95: values[4],
		Max: values[5],
	}, nil
}

// Summarize builds a Summary for naturally ordered types such as time.Duration.
func Summarize[T cmp.Ordered](samples []T) (Summary[T], error) {
	return SummarizeFunc(samples, cmp.Compare[T])
}

// Values returns the summary points in rank order.
func (s Summary[T]) Values() []T {
	return []T{s.Min, s.P50, s.P75, s.P90, s.P95, s.Max}
}

// Milliseconds converts a duration summary to fractional milliseconds.
func Milliseconds(s Summary[time.Duration]) Summary[float64] {
	ms := func(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
	return Summary[float64]{
		Min: ms(s.Min),
		P50: ms(s.P50),
		P75: ms(s.P75),
		P90: ms(s.P90),
		P95: ms(s.P95),
		Max: ms(s.Max),
	}
}
