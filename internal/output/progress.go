package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/torosent/webreplay/internal/metrics"
)

// ProgressReporter redraws one status line on stderr while a run is in
// flight. Start and Stop may each be called more than once.
type ProgressReporter struct {
	collector *metrics.Collector
	interval  time.Duration
	w         io.Writer

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewProgressReporter(collector *metrics.Collector, interval time.Duration, w io.Writer) *ProgressReporter {
	if w == nil {
		w = io.Discard
	}
	return &ProgressReporter{collector: collector, interval: interval, w: w}
}

func (p *ProgressReporter) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel, p.done = cancel, make(chan struct{})
	go p.loop(ctx, p.done)
}

// Stop halts the redraws, draws the final totals and ends the line.
func (p *ProgressReporter) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.draw()
	fmt.Fprintln(p.w)
}

func (p *ProgressReporter) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.draw()
		}
	}
}

func (p *ProgressReporter) draw() {
	fmt.Fprint(p.w, "\r"+progressLine(p.collector.Stats(p.collector.Elapsed())))
}

func progressLine(s metrics.Stats) string {
	var b strings.Builder
	if s.CurrentTarget != "" {
		fmt.Fprintf(&b, "[%d] %s | ", s.Endpoints, s.CurrentTarget)
	}
	fmt.Fprintf(&b, "%d sent, %d ok, %d failed | %.1f req/s", s.Total, s.Successes, s.Failures, s.RequestsPerSec)
	if s.Successes > 0 {
		fmt.Fprintf(&b, " | p95 %.1fms", s.P95LatencyMs)
	}
	return b.String()
}

// ShouldShowProgress reports whether f is a terminal. Redirected streams get
// no carriage-return redraws.
func ShouldShowProgress(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
