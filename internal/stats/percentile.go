package stats

import (
	"cmp"
	"math"
	"slices"

	"github.com/go-faster/errors"
)

// ErrEmptyInput is returned when a percentile is requested over zero samples.
var ErrEmptyInput = errors.New("percentile of empty sample set")

// StandardRanks are the ranks reported in every endpoint summary.
var StandardRanks = []float64{0.00, 0.50, 0.75, 0.90, 0.95, 1.00}

// PercentilesFunc returns the sample at each requested rank, in the order the
// ranks were given. compare defines the ordering of T and follows the
// convention of cmp.Compare. The input slice is not modified.
func PercentilesFunc[T any](samples []T, ranks []float64, compare func(a, b T) int) ([]T, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyInput
	}

	sorted := slices.Clone(samples)
	slices.SortFunc(sorted, compare)

	last := len(sorted) - 1
	out := make([]T, len(ranks))
	for i, p := range ranks {
		out[i] = sorted[rankIndex(p, last)]
	}
	return out, nil
}

// Percentiles is PercentilesFunc for naturally ordered types.
func Percentiles[T cmp.Ordered](samples []T, ranks []float64) ([]T, error) {
	return PercentilesFunc(samples, ranks, cmp.Compare[T])
}

// Percentile returns the sample at a single rank. Prefer Percentiles when
// several ranks are needed, it sorts only once.
func Percentile[T cmp.Ordered](samples []T, rank float64) (T, error) {
	values, err := Percentiles(samples, []float64{rank})
	if err != nil {
		var zero T
		return zero, err
	}
	return values[0], nil
}

func rankIndex(p float64, last int) int {
	if math.IsNaN(p) {
		return 0
	}
	idx := math.Floor(p * float64(last))
	if idx < 0 {
		return 0
	}
	if idx > float64(last) {
		return last
	}
	return int(idx)
}
