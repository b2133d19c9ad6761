package threshold

import (
	"strings"
	"time"

	"github.com/torosent/webreplay/internal/runner"
)

// extractor reads one metric:aggregate value off an endpoint result.
// Response times and durations are reported in milliseconds.
type extractor func(runner.EndpointResult) float64

var extractors = map[string]extractor{
	"response_time:min": func(r runner.EndpointResult) float64 { return ms(r.ResponseTimes.Min) },
	"response_time:p50": func(r runner.EndpointResult) float64 { return ms(r.ResponseTimes.P50) },
	"response_time:p75": func(r runner.EndpointResult) float64 { return ms(r.ResponseTimes.P75) },
	"response_time:p90": func(r runner.EndpointResult) float64 { return ms(r.ResponseTimes.P90) },
	"response_time:p95": func(r runner.EndpointResult) float64 { return ms(r.ResponseTimes.P95) },
	"response_time:max": func(r runner.EndpointResult) float64 { return ms(r.ResponseTimes.Max) },
	"requests:rate":     func(r runner.EndpointResult) float64 { return r.RequestsPerSecond },
	"requests:count":    func(r runner.EndpointResult) float64 { return float64(r.Samples) },
	"duration:total":    func(r runner.EndpointResult) float64 { return ms(r.Duration()) },
	"status:last":       func(r runner.EndpointResult) float64 { return float64(r.LastStatusCode) },
	"size:last":         func(r runner.EndpointResult) float64 { return float64(r.LastBodySize) },
}

// shorthands expand the single-word forms, e.g. "p95 < 500".
var shorthands = map[string]string{
	"min":      "response_time:min",
	"p50":      "response_time:p50",
	"p75":      "response_time:p75",
	"p90":      "response_time:p90",
	"p95":      "response_time:p95",
	"max":      "response_time:max",
	"rps":      "requests:rate",
	"duration": "duration:total",
	"status":   "status:last",
	"size":     "size:last",
}

func knownMetric(metric string) bool {
	for key := range extractors {
		if strings.HasPrefix(key, metric+":") {
			return true
		}
	}
	return false
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
