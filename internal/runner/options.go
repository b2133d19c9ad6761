package runner

import (
	"io"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"
)

// RunOptions configure an Orchestrator.
type RunOptions struct {
	Iterations      int     // sequential batches per target
	Concurrency     int     // requests in flight per batch
	MeasureBodySize bool    // read bodies fully and count bytes
	MeasureChecksum bool    // read bodies fully and hash them
	WaveRate        float64 // max batches started per second (0 means unlimited)

	Observer       Observer                                   // optional per-request hook
	Tracer         trace.Tracer                               // optional; no-op when nil
	Logger         logrus.FieldLogger                         // optional; discards when nil
	LimiterFactory func(wavesPerSecond float64) *rate.Limiter // optional injection for tests
}

// MeasureBody reports whether samples must read the full response body.
func (o RunOptions) MeasureBody() bool {
	return o.MeasureBodySize || o.MeasureChecksum
}

func (o *RunOptions) normalize() {
	if o.Iterations <= 0 {
		o.Iterations = 1
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.WaveRate < 0 {
		o.WaveRate = 0
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	if o.Tracer == nil {
		o.Tracer = noop.NewTracerProvider().Tracer("webreplay")
	}
	if o.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.Logger = l
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(perSecond float64) *rate.Limiter {
			if perSecond <= 0 {
				return nil
			}
			// Burst of one keeps waves evenly spaced.
			return rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}
