package runner

import (
	"fmt"
	"time"

	"github.com/torosent/webreplay/internal/stats"
)

// NoChecksum is the checksum recorded when hashing was not requested.
const NoChecksum = "0"

// RequestSample is the outcome of one HTTP call.
type RequestSample struct {
	Target       string
	ResponseTime time.Duration
	StatusCode   int
	BodySize     int64
	BodyChecksum string
}

// EndpointResult summarizes every sample taken for one target.
type EndpointResult struct {
	Replay            string // name of the replay definition
	Target            string
	Description       string
	BaseAddress       string
	Iterations        int
	Concurrency       int
	Samples           int
	RequestsPerSecond float64
	TestStart         time.Time
	TestEnd           time.Time
	LastStatusCode    int
	LastBodySize      int64
	LastBodyChecksum  string
	ResponseTimes     stats.Summary[time.Duration]
}

// Duration is the wall-clock span of the endpoint, pacing included.
func (r EndpointResult) Duration() time.Duration {
	return r.TestEnd.Sub(r.TestStart)
}

// RequestFailure is a transport level failure of a single request.
type RequestFailure struct {
	Target string
	Err    error
}

func (e *RequestFailure) Error() string {
	return fmt.Sprintf("request %q failed: %v", e.Target, e.Err)
}

func (e *RequestFailure) Unwrap() error { return e.Err }

// BatchFailure aborts a run: one member of a concurrent batch failed.
type BatchFailure struct {
	Replay    string
	Endpoint  int // zero-based index of the target within the replay
	Target    string
	Iteration int // one-based
	Err       error
}

func (e *BatchFailure) Error() string {
	name := e.Replay
	if name == "" {
		name = "replay"
	}
	return fmt.Sprintf("%s: endpoint %d (%s) iteration %d: %v", name, e.Endpoint+1, e.Target, e.Iteration, e.Err)
}

func (e *BatchFailure) Unwrap() error { return e.Err }
