package output_test

import (
	"time"

	"github.com/torosent/webreplay/internal/runner"
	"github.com/torosent/webreplay/internal/stats"
)

func sampleResult() runner.EndpointResult {
	start := time.Date(2024, 1, 2, 3, 4, 5, 6*int(time.Millisecond), time.UTC)
	return runner.EndpointResult{
		Replay:            "catalog",
		Target:            "/products?page=1",
		Description:       "catalog smoke",
		BaseAddress:       "http://shop.local",
		Iterations:        3,
		Concurrency:       2,
		Samples:           6,
		RequestsPerSecond: 4,
		TestStart:         start,
		TestEnd:           start.Add(1500 * time.Millisecond),
		LastStatusCode:    200,
		LastBodySize:      512,
		LastBodyChecksum:  runner.NoChecksum,
		ResponseTimes: stats.Summary[time.Duration]{
			Min: 1500 * time.Microsecond,
			P50: 2 * time.Millisecond,
			P75: 2250 * time.Microsecond,
			P90: 3 * time.Millisecond,
			P95: 3500 * time.Microsecond,
			Max: 10 * time.Millisecond,
		},
	}
}

type memorySink struct {
	lines []string
}

func (m *memorySink) WriteLine(line string) error {
	m.lines = append(m.lines, line)
	return nil
}
