package runner_test

import (
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/torosent/webreplay/internal/httpclient"
	"github.com/torosent/webreplay/internal/runner"
)

// doerFunc adapts a function to runner.Doer.
type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

// countingDoer answers every request with a fixed body and counts calls.
type countingDoer struct {
	calls  atomic.Int64
	status int
	body   string
	failOn int64 // 1-based call number that fails; 0 never fails
}

func (d *countingDoer) Do(req *http.Request) (*http.Response, error) {
	n := d.calls.Add(1)
	if d.failOn > 0 && n == d.failOn {
		return nil, io.ErrUnexpectedEOF
	}
	status := d.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode:    status,
		Body:          io.NopCloser(strings.NewReader(d.body)),
		ContentLength: int64(len(d.body)),
		Request:       req,
	}, nil
}

// recordingObserver counts observer notifications.
type recordingObserver struct {
	samples  atomic.Int64
	failures atomic.Int64
}

func (o *recordingObserver) ObserveSample(runner.RequestSample) { o.samples.Add(1) }
func (o *recordingObserver) ObserveFailure(string, error)       { o.failures.Add(1) }

func newBuilder(t *testing.T, base string) *httpclient.RequestBuilder {
	t.Helper()
	b, err := httpclient.NewRequestBuilder(base, map[string]string{"User-Agent": "webreplay-test"}, nil)
	if err != nil {
		t.Fatalf("NewRequestBuilder(%q) error = %v", base, err)
	}
	return b
}
