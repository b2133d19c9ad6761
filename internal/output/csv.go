package output

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/torosent/webreplay/internal/runner"
	"github.com/torosent/webreplay/internal/stats"
)

// CSVHeader names the columns of every report line.
const CSVHeader = "Sequence, Iterations, Concurrent Requests, TestStartTimeUtc, TestEndTimeUtc, TestDurationMs, Status Code, Response Size, Response Checksum, Req/Sec, min, perc50, perc75, perc90, perc95, max, description, baseUri, uri"

// TimestampLayout renders UTC start and end times.
const TimestampLayout = "2006-01-02 15:04:05.000"

// Reporter turns endpoint results into report lines.
type Reporter interface {
	// Begin writes anything that precedes the first result.
	Begin() error
	// Report writes one result. Calls happen in emission order.
	Report(res runner.EndpointResult) error
}

// CSVReporter writes the header once and one numbered line per result. The
// sequence number keeps counting across replay files.
type CSVReporter struct {
	sink LineSink
	seq  int
}

func NewCSVReporter(sink LineSink) *CSVReporter {
	return &CSVReporter{sink: sink}
}

func (r *CSVReporter) Begin() error {
	return r.sink.WriteLine(CSVHeader)
}

func (r *CSVReporter) Report(res runner.EndpointResult) error {
	r.seq++
	return r.sink.WriteLine(FormatCSVLine(r.seq, res))
}

// FormatCSVLine renders one result in header column order.
func FormatCSVLine(seq int, res runner.EndpointResult) string {
	rt := stats.Milliseconds(res.ResponseTimes)
	fields := []string{
		strconv.Itoa(seq),
		strconv.Itoa(res.Iterations),
		strconv.Itoa(res.Concurrency),
		FormatTimestamp(res.TestStart),
		FormatTimestamp(res.TestEnd),
		fmt.Sprintf("%.2f", durationMs(res.Duration())),
		strconv.Itoa(res.LastStatusCode),
		strconv.FormatInt(res.LastBodySize, 10),
		res.LastBodyChecksum,
		fmt.Sprintf("%.2f", res.RequestsPerSecond),
		formatMs(rt.Min),
		formatMs(rt.P50),
		formatMs(rt.P75),
		formatMs(rt.P90),
		formatMs(rt.P95),
		formatMs(rt.Max),
		csvField(res.Description),
		csvField(res.BaseAddress),
		csvField(res.Target),
	}
	return strings.Join(fields, ", ")
}

// FormatTimestamp renders t in UTC with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func formatMs(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// csvField quotes free text that would otherwise break the column layout.
func csvField(s string) string {
	if !strings.ContainsAny(s, ",\"\r\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
