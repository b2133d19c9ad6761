package output

import (
	"encoding/json"

	"github.com/torosent/webreplay/internal/runner"
	"github.com/torosent/webreplay/internal/stats"
)

// Record is the JSON form of one endpoint result.
type Record struct {
	RunID             string  `json:"run_id,omitempty"`
	Sequence          int     `json:"sequence"`
	Replay            string  `json:"replay,omitempty"`
	Iterations        int     `json:"iterations"`
	Concurrency       int     `json:"concurrent_requests"`
	Samples           int     `json:"samples"`
	TestStart         string  `json:"test_start_utc"`
	TestEnd           string  `json:"test_end_utc"`
	TestDurationMs    float64 `json:"test_duration_ms"`
	StatusCode        int     `json:"status_code"`
	ResponseSize      int64   `json:"response_size"`
	ResponseChecksum  string  `json:"response_checksum"`
	RequestsPerSecond float64 `json:"requests_per_sec"`
	MinMs             float64 `json:"min_ms"`
	P50Ms             float64 `json:"perc50_ms"`
	P75Ms             float64 `json:"perc75_ms"`
	P90Ms             float64 `json:"perc90_ms"`
	P95Ms             float64 `json:"perc95_ms"`
	MaxMs             float64 `json:"max_ms"`
	Description       string  `json:"description"`
	BaseURI           string  `json:"base_uri"`
	URI               string  `json:"uri"`
}

// NewRecord flattens res for machine-readable output.
func NewRecord(runID string, seq int, res runner.EndpointResult) Record {
	rt := stats.Milliseconds(res.ResponseTimes)
	return Record{
		RunID:             runID,
		Sequence:          seq,
		Replay:            res.Replay,
		Iterations:        res.Iterations,
		Concurrency:       res.Concurrency,
		Samples:           res.Samples,
		TestStart:         FormatTimestamp(res.TestStart),
		TestEnd:           FormatTimestamp(res.TestEnd),
		TestDurationMs:    durationMs(res.Duration()),
		StatusCode:        res.LastStatusCode,
		ResponseSize:      res.LastBodySize,
		ResponseChecksum:  res.LastBodyChecksum,
		RequestsPerSecond: res.RequestsPerSecond,
		MinMs:             rt.Min,
		P50Ms:             rt.P50,
		P75Ms:             rt.P75,
		P90Ms:             rt.P90,
		P95Ms:             rt.P95,
		MaxMs:             rt.Max,
		Description:       res.Description,
		BaseURI:           res.BaseAddress,
		URI:               res.Target,
	}
}

// JSONReporter writes one JSON object per line.
type JSONReporter struct {
	sink  LineSink
	runID string
	seq   int
}

func NewJSONReporter(sink LineSink, runID string) *JSONReporter {
	return &JSONReporter{sink: sink, runID: runID}
}

// Begin writes nothing: JSON lines carry their own field names.
func (r *JSONReporter) Begin() error { return nil }

func (r *JSONReporter) Report(res runner.EndpointResult) error {
	r.seq++
	data, err := json.Marshal(NewRecord(r.runID, r.seq, res))
	if err != nil {
		return err
	}
	return r.sink.WriteLine(string(data))
}

// Collecting wraps a reporter and keeps every result for end-of-run reports.
type Collecting struct {
	Reporter
	Results []runner.EndpointResult
}

func (c *Collecting) Report(res runner.EndpointResult) error {
	c.Results = append(c.Results, res)
	return c.Reporter.Report(res)
}
