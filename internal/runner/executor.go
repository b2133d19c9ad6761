package runner

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"hash"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/webreplay/internal/tracing"
)

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RequestFactory builds the request for one target. Implementations must be
// safe for concurrent use.
type RequestFactory interface {
	Build(ctx context.Context, target string) (*http.Request, error)
}

// Connection is the shared, read-only transport scope of one replay.
type Connection struct {
	Client   Doer
	Requests RequestFactory
}

// Executor performs single requests and turns them into samples.
type Executor struct {
	conn     Connection
	opts     RunOptions
	observer Observer
	tracer   trace.Tracer
	now      func() time.Time
}

// NewExecutor returns an Executor bound to conn.
func NewExecutor(conn Connection, opts RunOptions) *Executor {
	opts.normalize()
	return &Executor{
		conn:     conn,
		opts:     opts,
		observer: opts.Observer,
		tracer:   opts.Tracer,
		now:      time.Now,
	}
}

// Execute issues one GET for target. Any HTTP status yields a sample; only
// transport errors produce a *RequestFailure.
func (e *Executor) Execute(ctx context.Context, target string) (RequestSample, error) {
	ctx, span := tracing.StartRequestSpan(ctx, e.tracer, target)
	sample, err := e.execute(ctx, target)
	if err != nil {
		tracing.EndSpan(span, err)
		e.observer.ObserveFailure(target, err)
		return RequestSample{}, &RequestFailure{Target: target, Err: err}
	}
	tracing.EndSpan(span, nil,
		attribute.Int("http.response.status_code", sample.StatusCode),
		attribute.Int64("webreplay.body_size", sample.BodySize),
		attribute.Int64("webreplay.response_time_us", sample.ResponseTime.Microseconds()),
	)
	e.observer.ObserveSample(sample)
	return sample, nil
}

func (e *Executor) execute(ctx context.Context, target string) (RequestSample, error) {
	if e.conn.Client == nil || e.conn.Requests == nil {
		return RequestSample{}, errors.New("connection is not configured")
	}
	req, err := e.conn.Requests.Build(ctx, target)
	if err != nil {
		return RequestSample{}, errors.Wrap(err, "build request")
	}

	start := e.now()
	resp, err := e.conn.Client.Do(req)
	if err != nil {
		return RequestSample{}, err
	}
	defer resp.Body.Close()

	sample := RequestSample{
		Target:       target,
		StatusCode:   resp.StatusCode,
		BodyChecksum: NoChecksum,
	}

	if !e.opts.MeasureBody() {
		// Time to first byte; the body is left unread.
		sample.ResponseTime = e.now().Sub(start)
		if resp.ContentLength > 0 {
			sample.BodySize = resp.ContentLength
		}
		return sample, nil
	}

	var sum hash.Hash
	dst := io.Discard
	if e.opts.MeasureChecksum {
		sum = md5.New()
		dst = sum
	}
	n, err := io.Copy(dst, resp.Body)
	if err != nil {
		return RequestSample{}, errors.Wrap(err, "read body")
	}
	sample.ResponseTime = e.now().Sub(start)
	sample.BodySize = n
	if sum != nil {
		sample.BodyChecksum = hex.EncodeToString(sum.Sum(nil))
	}
	return sample, nil
}
