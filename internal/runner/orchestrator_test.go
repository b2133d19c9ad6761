package runner_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/torosent/webreplay/internal/runner"
)

func okServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		io.WriteString(w, "ok")
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOrchestratorScenarioThreeByTwo(t *testing.T) {
	var hits atomic.Int64
	server := okServer(t, &hits)

	orch := runner.NewOrchestrator(server.Client(), runner.RunOptions{Iterations: 3, Concurrency: 2})
	var results []runner.EndpointResult
	err := orch.Run(context.Background(), runner.Replay{
		Name:        "site",
		Description: "smoke",
		BaseURI:     server.URL,
		Targets:     []string{"/"},
		Requests:    newBuilder(t, server.URL),
	}, func(res runner.EndpointResult) error {
		results = append(results, res)
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	res := results[0]
	if res.LastStatusCode != http.StatusOK {
		t.Errorf("LastStatusCode = %d, want 200", res.LastStatusCode)
	}
	if res.Samples != 6 || hits.Load() != 6 {
		t.Errorf("samples = %d, hits = %d, want 6/6", res.Samples, hits.Load())
	}
	if res.RequestsPerSecond <= 0 {
		t.Errorf("RequestsPerSecond = %v, want > 0", res.RequestsPerSecond)
	}
	if res.LastBodySize != 2 {
		t.Errorf("LastBodySize = %d, want 2 from Content-Length", res.LastBodySize)
	}
	if res.LastBodyChecksum != runner.NoChecksum {
		t.Errorf("LastBodyChecksum = %q, want %q", res.LastBodyChecksum, runner.NoChecksum)
	}
	if res.Iterations != 3 || res.Concurrency != 2 {
		t.Errorf("Iterations/Concurrency = %d/%d, want 3/2", res.Iterations, res.Concurrency)
	}
	if res.Description != "smoke" || res.BaseAddress != server.URL || res.Target != "/" || res.Replay != "site" {
		t.Errorf("identity fields not carried: %+v", res)
	}
	if res.TestEnd.Before(res.TestStart) {
		t.Errorf("TestEnd %s before TestStart %s", res.TestEnd, res.TestStart)
	}
	if res.TestStart.Location() != time.UTC {
		t.Errorf("TestStart location = %s, want UTC", res.TestStart.Location())
	}
	rt := res.ResponseTimes
	if rt.Min > rt.P50 || rt.P50 > rt.P75 || rt.P75 > rt.P90 || rt.P90 > rt.P95 || rt.P95 > rt.Max {
		t.Errorf("summary not monotonic: %+v", rt)
	}
}

func TestOrchestratorSingleSample(t *testing.T) {
	server := okServer(t, nil)
	orch := runner.NewOrchestrator(server.Client(), runner.RunOptions{Iterations: 1, Concurrency: 1})

	var got runner.EndpointResult
	err := orch.Run(context.Background(), runner.Replay{
		Targets:  []string{"/"},
		Requests: newBuilder(t, server.URL),
	}, func(res runner.EndpointResult) error {
		got = res
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	rt := got.ResponseTimes
	for _, v := range rt.Values() {
		if v != rt.Min {
			t.Fatalf("single sample summary not flat: %+v", rt)
		}
	}
	if got.Samples != 1 {
		t.Errorf("Samples = %d, want 1", got.Samples)
	}
}

func TestOrchestratorEmitsInTargetOrder(t *testing.T) {
	var order []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer server.Close()

	orch := runner.NewOrchestrator(server.Client(), runner.RunOptions{Iterations: 2, Concurrency: 3})
	targets := []string{"/c", "/a", "/b"}
	err := orch.Run(context.Background(), runner.Replay{Targets: targets, Requests: newBuilder(t, server.URL)},
		func(res runner.EndpointResult) error {
			order = append(order, res.Target)
			if res.Samples != 6 {
				t.Errorf("%s: Samples = %d, want 6", res.Target, res.Samples)
			}
			if res.LastStatusCode != http.StatusTeapot {
				t.Errorf("%s: LastStatusCode = %d, want 418", res.Target, res.LastStatusCode)
			}
			return nil
		})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(order) != 3 || order[0] != "/c" || order[1] != "/a" || order[2] != "/b" {
		t.Fatalf("emission order = %v, want %v", order, targets)
	}
}

func TestOrchestratorStopsOnBatchFailure(t *testing.T) {
	// Call 7 is the third request of the second target's first batch of 4.
	doer := &countingDoer{body: "ok", failOn: 7}
	orch := runner.NewOrchestrator(doer, runner.RunOptions{Iterations: 1, Concurrency: 4})

	var emitted []string
	err := orch.Run(context.Background(), runner.Replay{
		Name:     "broken",
		Targets:  []string{"/first", "/second", "/third"},
		Requests: newBuilder(t, "http://example.com"),
	}, func(res runner.EndpointResult) error {
		emitted = append(emitted, res.Target)
		return nil
	})

	var bf *runner.BatchFailure
	if !errors.As(err, &bf) {
		t.Fatalf("Run() error = %v, want *BatchFailure", err)
	}
	if bf.Target != "/second" || bf.Endpoint != 1 || bf.Iteration != 1 || bf.Replay != "broken" {
		t.Errorf("BatchFailure = %+v", bf)
	}
	var rf *runner.RequestFailure
	if !errors.As(err, &rf) {
		t.Errorf("BatchFailure does not carry the RequestFailure: %v", err)
	}
	if len(emitted) != 1 || emitted[0] != "/first" {
		t.Errorf("emitted = %v, want only /first", emitted)
	}
	if doer.calls.Load() != 8 {
		t.Errorf("calls = %d, want 8 (third target never started)", doer.calls.Load())
	}
}

func TestOrchestratorHandlerErrorStopsRun(t *testing.T) {
	doer := &countingDoer{body: "ok"}
	orch := runner.NewOrchestrator(doer, runner.RunOptions{})
	boom := errors.New("sink closed")

	err := orch.Run(context.Background(), runner.Replay{
		Targets:  []string{"/a", "/b"},
		Requests: newBuilder(t, "http://example.com"),
	}, func(runner.EndpointResult) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want %v", err, boom)
	}
	if doer.calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", doer.calls.Load())
	}
}

func TestOrchestratorWavePacingExcludedFromRate(t *testing.T) {
	doer := &countingDoer{body: "ok"}
	var limiterRate float64
	orch := runner.NewOrchestrator(doer, runner.RunOptions{
		Iterations:  3,
		Concurrency: 2,
		WaveRate:    20,
		LimiterFactory: func(perSecond float64) *rate.Limiter {
			limiterRate = perSecond
			return rate.NewLimiter(rate.Limit(perSecond), 1)
		},
	})
	if limiterRate != 20 {
		t.Fatalf("limiter created with %v waves/s, want 20", limiterRate)
	}

	var res runner.EndpointResult
	err := orch.Run(context.Background(), runner.Replay{
		Targets:  []string{"/"},
		Requests: newBuilder(t, "http://example.com"),
	}, func(r runner.EndpointResult) error {
		res = r
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Two 50ms waits between three waves.
	if res.Duration() < 90*time.Millisecond {
		t.Errorf("Duration = %s, want >= 90ms with pacing", res.Duration())
	}
	wallRate := float64(res.Samples) / res.Duration().Seconds()
	if res.RequestsPerSecond <= wallRate {
		t.Errorf("RequestsPerSecond = %v should exceed wall-clock rate %v (pacing excluded)", res.RequestsPerSecond, wallRate)
	}
}

func TestOrchestratorObserverSeesEveryRequest(t *testing.T) {
	obs := &recordingObserver{}
	orch := runner.NewOrchestrator(&countingDoer{body: "ok"}, runner.RunOptions{Iterations: 4, Concurrency: 5, Observer: obs})
	err := orch.Run(context.Background(), runner.Replay{
		Targets:  []string{"/a", "/b"},
		Requests: newBuilder(t, "http://example.com"),
	}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if obs.samples.Load() != 40 {
		t.Errorf("observed %d samples, want 40", obs.samples.Load())
	}
}

func TestOrchestratorCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	server := okServer(t, nil)
	orch := runner.NewOrchestrator(server.Client(), runner.RunOptions{})
	err := orch.Run(ctx, runner.Replay{Targets: []string{"/"}, Requests: newBuilder(t, server.URL)}, nil)
	var bf *runner.BatchFailure
	if !errors.As(err, &bf) {
		t.Fatalf("Run() error = %v, want *BatchFailure", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error %v should wrap context.Canceled", err)
	}
}

func TestRunOptionsDefaults(t *testing.T) {
	opts := runner.NewOrchestrator(&countingDoer{}, runner.RunOptions{Iterations: -1, Concurrency: 0, WaveRate: -3}).Options()
	if opts.Iterations != 1 || opts.Concurrency != 1 {
		t.Errorf("Iterations/Concurrency = %d/%d, want 1/1", opts.Iterations, opts.Concurrency)
	}
	if opts.WaveRate != 0 {
		t.Errorf("WaveRate = %v, want 0", opts.WaveRate)
	}
	if opts.Observer == nil || opts.Tracer == nil || opts.Logger == nil || opts.LimiterFactory == nil {
		t.Error("normalize should fill optional collaborators")
	}
	if opts.LimiterFactory(0) != nil {
		t.Error("zero wave rate should not create a limiter")
	}
	if opts.MeasureBody() {
		t.Error("MeasureBody() = true, want false")
	}
}

func TestOrchestratorSpansPerEndpoint(t *testing.T) {
	server := okServer(t, nil)
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	orch := runner.NewOrchestrator(server.Client(), runner.RunOptions{
		Iterations:  2,
		Concurrency: 2,
		Tracer:      tp.Tracer("orchestrator-test"),
	})
	err := orch.Run(context.Background(), runner.Replay{
		Name:     "site",
		BaseURI:  server.URL,
		Targets:  []string{"/a", "/b"},
		Requests: newBuilder(t, server.URL),
	}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	parents := map[string]string{}
	children := map[string]int{}
	for _, s := range rec.Ended() {
		if s.SpanKind() == trace.SpanKindInternal {
			parents[s.SpanContext().SpanID().String()] = s.Name()
		}
	}
	for _, s := range rec.Ended() {
		if s.SpanKind() == trace.SpanKindClient {
			children[parents[s.Parent().SpanID().String()]]++
		}
	}
	if len(parents) != 2 {
		t.Fatalf("got %d endpoint spans, want 2", len(parents))
	}
	for _, name := range []string{"replay /a", "replay /b"} {
		if children[name] != 4 {
			t.Errorf("%s has %d request spans, want 4", name, children[name])
		}
	}
}

func TestOrchestratorWavesDoNotOverlap(t *testing.T) {
	const iterations, concurrency = 3, 4

	var (
		mu        sync.Mutex
		inFlight  int
		peak      int
		started   atomic.Int64
		completed atomic.Int64
	)
	waves := map[int64]int{}
	doer := doerFunc(func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		inFlight++
		peak = max(peak, inFlight)
		wave := completed.Load() / concurrency
		waves[wave]++
		mu.Unlock()

		// Hold every request until its whole wave has started.
		started.Add(1)
		deadline := time.Now().Add(2 * time.Second)
		for started.Load() < (wave+1)*concurrency && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}

		mu.Lock()
		inFlight--
		mu.Unlock()
		completed.Add(1)
		return &http.Response{
			StatusCode:    http.StatusOK,
			Body:          io.NopCloser(strings.NewReader("ok")),
			ContentLength: 2,
			Request:       req,
		}, nil
	})

	orch := runner.NewOrchestrator(doer, runner.RunOptions{Iterations: iterations, Concurrency: concurrency})
	err := orch.Run(context.Background(), runner.Replay{
		Name:     "waves",
		BaseURI:  "http://replay.test",
		Targets:  []string{"/"},
		Requests: newBuilder(t, "http://replay.test"),
	}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if peak != concurrency {
		t.Errorf("peak in-flight = %d, want %d", peak, concurrency)
	}
	if len(waves) != iterations {
		t.Fatalf("requests fell into %d waves, want %d: %v", len(waves), iterations, waves)
	}
	for w := int64(0); w < iterations; w++ {
		if waves[w] != concurrency {
			t.Errorf("wave %d had %d requests, want %d", w, waves[w], concurrency)
		}
	}
}
