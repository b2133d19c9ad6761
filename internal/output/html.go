package output

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/go-faster/errors"

	"github.com/torosent/webreplay/internal/metrics"
	"github.com/torosent/webreplay/internal/runner"
	"github.com/torosent/webreplay/internal/threshold"
)

//go:embed report.html.tmpl
var reportSource string

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"ms": func(v float64) string { return fmt.Sprintf("%.2f", v) },
}).Parse(reportSource))

// ReportMetadata describes how the run was configured.
type ReportMetadata struct {
	RunID       string
	ReplayFiles []string
	Iterations  int
	Concurrency int
}

// ThresholdSummary groups threshold outcomes for rendering.
type ThresholdSummary struct {
	Passed  int
	Total   int
	Results []threshold.Result
}

type summaryCard struct {
	Title  string
	Value  string
	Detail string
	Tone   string
}

// replayGroup holds the rows of one replay file, in report order.
type replayGroup struct {
	Name    string
	BaseURI string
	Records []Record
}

// latencySeries feeds the chart; html/template encodes it as JSON.
type latencySeries struct {
	Sequence []int     `json:"sequence"`
	P50      []float64 `json:"p50"`
	P95      []float64 `json:"p95"`
	Max      []float64 `json:"max"`
}

type reportPage struct {
	Generated  string
	Meta       ReportMetadata
	Duration   time.Duration
	Cards      []summaryCard
	Replays    []replayGroup
	Chart      latencySeries
	Thresholds *ThresholdSummary
	Statuses   []metrics.StatusCount
}

// GenerateHTMLReport renders a standalone HTML page with every endpoint
// result grouped by replay, the run totals and the threshold outcomes.
func GenerateHTMLReport(w io.Writer, results []runner.EndpointResult, stats metrics.Stats, thresholdResults []threshold.Result, metadata ReportMetadata) error {
	page := reportPage{
		Generated: time.Now().UTC().Format(time.RFC3339),
		Meta:      metadata,
		Duration:  stats.Duration.Round(time.Millisecond),
		Cards:     summaryCards(stats),
		Statuses:  stats.StatusCodes,
	}

	for i, res := range results {
		rec := NewRecord(metadata.RunID, i+1, res)
		n := len(page.Replays)
		if n == 0 || page.Replays[n-1].Name != rec.Replay || page.Replays[n-1].BaseURI != rec.BaseURI {
			page.Replays = append(page.Replays, replayGroup{Name: rec.Replay, BaseURI: rec.BaseURI})
			n++
		}
		page.Replays[n-1].Records = append(page.Replays[n-1].Records, rec)

		page.Chart.Sequence = append(page.Chart.Sequence, rec.Sequence)
		page.Chart.P50 = append(page.Chart.P50, rec.P50Ms)
		page.Chart.P95 = append(page.Chart.P95, rec.P95Ms)
		page.Chart.Max = append(page.Chart.Max, rec.MaxMs)
	}

	if len(thresholdResults) > 0 {
		page.Thresholds = &ThresholdSummary{Total: len(thresholdResults), Results: thresholdResults}
		for _, r := range thresholdResults {
			if r.Pass {
				page.Thresholds.Passed++
			}
		}
	}

	if err := reportTemplate.Execute(w, page); err != nil {
		return errors.Wrap(err, "render html report")
	}
	return nil
}

func summaryCards(s metrics.Stats) []summaryCard {
	share := func(part int64) string {
		if s.Total == 0 {
			return "0.0%"
		}
		return fmt.Sprintf("%.1f%%", float64(part)/float64(s.Total)*100)
	}
	return []summaryCard{
		{Title: "Requests", Value: fmt.Sprint(s.Total), Detail: fmt.Sprintf("%d endpoints", s.Endpoints)},
		{Title: "Responded", Value: fmt.Sprint(s.Successes), Detail: share(s.Successes), Tone: "ok"},
		{Title: "Failed", Value: fmt.Sprint(s.Failures), Detail: share(s.Failures), Tone: "bad"},
		{Title: "Throughput", Value: fmt.Sprintf("%.2f req/s", s.RequestsPerSec)},
		{Title: "Latency p95", Value: fmt.Sprintf("%.2f ms", s.P95LatencyMs), Detail: fmt.Sprintf("mean %.2f ms, p99 %.2f ms", s.MeanLatencyMs, s.P99LatencyMs)},
	}
}
