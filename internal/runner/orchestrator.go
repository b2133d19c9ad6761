package runner

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/torosent/webreplay/internal/stats"
	"github.com/torosent/webreplay/internal/tracing"
)

// Replay is what the orchestrator needs from a replay definition.
type Replay struct {
	Name        string
	Description string
	BaseURI     string
	Targets     []string
	Requests    RequestFactory
}

// ResultHandler receives each endpoint result synchronously. A non-nil error
// stops the run.
type ResultHandler func(EndpointResult) error

// Orchestrator runs replays endpoint by endpoint.
type Orchestrator struct {
	client  Doer
	opts    RunOptions
	limiter *rate.Limiter
	now     func() time.Time
}

// NewOrchestrator returns an Orchestrator sending requests through client.
// The wave limiter is shared by every replay run through it.
func NewOrchestrator(client Doer, opts RunOptions) *Orchestrator {
	opts.normalize()
	return &Orchestrator{
		client:  client,
		opts:    opts,
		limiter: opts.LimiterFactory(opts.WaveRate),
		now:     time.Now,
	}
}

// Options returns the normalized options.
func (o *Orchestrator) Options() RunOptions {
	return o.opts
}

// Run replays every target of r in order and calls handle once per target.
// The first failed batch aborts the run with a *BatchFailure; no result is
// emitted for that target.
func (o *Orchestrator) Run(ctx context.Context, r Replay, handle ResultHandler) error {
	exec := NewExecutor(Connection{Client: o.client, Requests: r.Requests}, o.opts)
	exec.now = o.now

	log := o.opts.Logger.WithFields(logrus.Fields{
		"replay":   r.Name,
		"base_uri": r.BaseURI,
	})

	for idx, target := range r.Targets {
		res, err := o.tracedEndpoint(ctx, exec, r, idx, target)
		if err != nil {
			log.WithFields(logrus.Fields{"target": target}).WithError(err).Error("endpoint failed")
			return err
		}
		log.WithFields(logrus.Fields{
			"target": target,
			"rps":    res.RequestsPerSecond,
			"p95":    res.ResponseTimes.P95,
		}).Debug("endpoint complete")
		if handle != nil {
			if err := handle(res); err != nil {
				return errors.Wrapf(err, "handle result for %q", target)
			}
		}
	}
	return nil
}

// tracedEndpoint wraps runEndpoint in a span that parents every request span
// of the target.
func (o *Orchestrator) tracedEndpoint(ctx context.Context, exec *Executor, r Replay, idx int, target string) (EndpointResult, error) {
	ctx, span := tracing.StartEndpointSpan(ctx, o.opts.Tracer, r.Name, target, o.opts.Iterations, o.opts.Concurrency)
	res, err := o.runEndpoint(ctx, exec, r, idx, target)
	if err != nil {
		tracing.EndSpan(span, err)
		return res, err
	}
	tracing.EndSpan(span, nil,
		attribute.Int("webreplay.samples", res.Samples),
		attribute.Float64("webreplay.requests_per_sec", res.RequestsPerSecond),
		attribute.Int64("webreplay.p95_us", res.ResponseTimes.P95.Microseconds()),
	)
	return res, nil
}

func (o *Orchestrator) runEndpoint(ctx context.Context, exec *Executor, r Replay, idx int, target string) (EndpointResult, error) {
	iterations, concurrency := o.opts.Iterations, o.opts.Concurrency
	targets := replicate(target, concurrency)
	samples := make([]RequestSample, 0, iterations*concurrency)

	var busy time.Duration
	start := o.now()
	for i := 1; i <= iterations; i++ {
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				return EndpointResult{}, o.batchFailure(r, idx, target, i, err)
			}
		}
		waveStart := o.now()
		batch, err := RunBatch(ctx, exec, targets)
		busy += o.now().Sub(waveStart)
		if err != nil {
			return EndpointResult{}, o.batchFailure(r, idx, target, i, err)
		}
		samples = append(samples, batch...)
	}
	end := o.now()

	times := make([]time.Duration, len(samples))
	for i, s := range samples {
		times[i] = s.ResponseTime
	}
	summary, err := stats.Summarize(times)
	if err != nil {
		return EndpointResult{}, errors.Wrapf(err, "summarize %q", target)
	}

	last := samples[len(samples)-1]
	res := EndpointResult{
		Replay:           r.Name,
		Target:           target,
		Description:      r.Description,
		BaseAddress:      r.BaseURI,
		Iterations:       iterations,
		Concurrency:      concurrency,
		Samples:          len(samples),
		TestStart:        start.UTC(),
		TestEnd:          end.UTC(),
		LastStatusCode:   last.StatusCode,
		LastBodySize:     last.BodySize,
		LastBodyChecksum: last.BodyChecksum,
		ResponseTimes:    summary,
	}
	if busy > 0 {
		res.RequestsPerSecond = float64(len(samples)) / busy.Seconds()
	}
	return res, nil
}

func (o *Orchestrator) batchFailure(r Replay, idx int, target string, iteration int, err error) error {
	return &BatchFailure{
		Replay:    r.Name,
		Endpoint:  idx,
		Target:    target,
		Iteration: iteration,
		Err:       err,
	}
}
