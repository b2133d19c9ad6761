package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/torosent/webreplay/internal/runner"
)

// Histogram bounds in microseconds: 1µs to 60s at 3 significant figures.
const (
	histLowest  = 1
	histHighest = 60_000_000
	histSigFigs = 3
)

// Collector aggregates every request of a run across all replays. It is the
// run-wide counterpart of the per-endpoint summaries in the CSV report and is
// safe for concurrent observers.
type Collector struct {
	mu        sync.Mutex
	start     time.Time
	latency   latencies
	successes int64
	failures  int64
	bytes     int64
	statuses  map[int]int64
	errors    map[string]int64
	targets   map[string]struct{}
	current   string
}

var _ runner.Observer = (*Collector)(nil)

// Stats is a snapshot of a Collector.
type Stats struct {
	Total          int64         `json:"total"`
	Successes      int64         `json:"successes"`
	Failures       int64         `json:"failures"`
	Bytes          int64         `json:"bytes"`
	Endpoints      int           `json:"endpoints"`
	CurrentTarget  string        `json:"-"`
	MinLatency     time.Duration `json:"-"`
	MaxLatency     time.Duration `json:"-"`
	MeanLatency    time.Duration `json:"-"`
	P50Latency     time.Duration `json:"-"`
	P90Latency     time.Duration `json:"-"`
	P95Latency     time.Duration `json:"-"`
	P99Latency     time.Duration `json:"-"`
	Duration       time.Duration `json:"-"`
	RequestsPerSec float64       `json:"requests_per_sec"`

	MinLatencyMs  float64 `json:"min_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
	MeanLatencyMs float64 `json:"mean_latency_ms"`
	P50LatencyMs  float64 `json:"p50_latency_ms"`
	P90LatencyMs  float64 `json:"p90_latency_ms"`
	P95LatencyMs  float64 `json:"p95_latency_ms"`
	P99LatencyMs  float64 `json:"p99_latency_ms"`
	DurationMs    float64 `json:"duration_ms"`

	StatusCodes []StatusCount  `json:"status_codes,omitempty"`
	Errors      map[string]int `json:"errors,omitempty"`
}

func NewCollector() *Collector {
	return &Collector{
		start:    time.Now(),
		latency:  newLatencies(),
		statuses: make(map[int]int64),
		errors:   make(map[string]int64),
		targets:  make(map[string]struct{}),
	}
}

// Start resets the clock used by Elapsed.
func (c *Collector) Start() {
	c.mu.Lock()
	c.start = time.Now()
	c.mu.Unlock()
}

// Elapsed returns the time since the collector was created or started.
func (c *Collector) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.start)
}

// ObserveSample records a request that produced a response, whatever its status.
func (c *Collector) ObserveSample(s runner.RequestSample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.successes++
	c.bytes += s.BodySize
	c.statuses[s.StatusCode]++
	c.latency.add(s.ResponseTime)
	c.seen(s.Target)
}

// ObserveFailure records a request that never produced a response.
func (c *Collector) ObserveFailure(target string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failures++
	c.errors[ClassifyError(err)]++
	c.seen(target)
}

func (c *Collector) seen(target string) {
	if target == "" {
		return
	}
	c.targets[target] = struct{}{}
	c.current = target
}

// Stats snapshots the collector. elapsed is the denominator of RequestsPerSec.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Total:         c.successes + c.failures,
		Successes:     c.successes,
		Failures:      c.failures,
		Bytes:         c.bytes,
		Endpoints:     len(c.targets),
		CurrentTarget: c.current,
		MinLatency:    c.latency.min,
		MaxLatency:    c.latency.max,
		MeanLatency:   c.latency.mean(),
		P50Latency:    c.latency.quantile(50),
		P90Latency:    c.latency.quantile(90),
		P95Latency:    c.latency.quantile(95),
		P99Latency:    c.latency.quantile(99),
		Duration:      elapsed,
		StatusCodes:   FlattenStatusCodes(c.statuses),
	}
	if elapsed > 0 && s.Total > 0 {
		s.RequestsPerSec = float64(s.Total) / elapsed.Seconds()
	}

	s.MinLatencyMs = millis(s.MinLatency)
	s.MaxLatencyMs = millis(s.MaxLatency)
	s.MeanLatencyMs = millis(s.MeanLatency)
	s.P50LatencyMs = millis(s.P50Latency)
	s.P90LatencyMs = millis(s.P90Latency)
	s.P95LatencyMs = millis(s.P95Latency)
	s.P99LatencyMs = millis(s.P99Latency)
	s.DurationMs = millis(elapsed)

	if len(c.errors) > 0 {
		s.Errors = make(map[string]int, len(c.errors))
		for k, v := range c.errors {
			s.Errors[k] = int(v)
		}
	}
	return s
}

// latencies keeps exact extremes and mean next to an HDR histogram for the
// percentiles.
type latencies struct {
	hist     *hdrhistogram.Histogram
	min, max time.Duration
	sum      time.Duration
	n        int64
}

func newLatencies() latencies {
	return latencies{hist: hdrhistogram.New(histLowest, histHighest, histSigFigs)}
}

func (l *latencies) add(d time.Duration) {
	l.n++
	l.sum += d
	if l.n == 1 || d < l.min {
		l.min = d
	}
	if d > l.max {
		l.max = d
	}
	us := min(max(d.Microseconds(), histLowest), histHighest)
	_ = l.hist.RecordValue(us)
}

func (l *latencies) mean() time.Duration {
	if l.n == 0 {
		return 0
	}
	return l.sum / time.Duration(l.n)
}

func (l *latencies) quantile(q float64) time.Duration {
	if l.n == 0 {
		return 0
	}
	return time.Duration(l.hist.ValueAtQuantile(q)) * time.Microsecond
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
