package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-faster/errors"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/torosent/webreplay/internal/config"
	"github.com/torosent/webreplay/internal/httpclient"
	"github.com/torosent/webreplay/internal/metrics"
	"github.com/torosent/webreplay/internal/output"
	"github.com/torosent/webreplay/internal/replay"
	"github.com/torosent/webreplay/internal/runner"
	"github.com/torosent/webreplay/internal/threshold"
	"github.com/torosent/webreplay/internal/tracing"
)

const (
	progressInterval = time.Second
	shutdownTimeout  = 5 * time.Second
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return execute(ctx, args, os.Stdout, os.Stderr)
}

// execute runs one invocation. The report stream goes to stdout; banners,
// logs, progress and the run summary go to stderr.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.NewLoader().Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	for _, w := range cfg.Warnings() {
		fmt.Fprintln(stderr, w)
	}
	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}
	if cfg.NoColor {
		color.NoColor = true
	}

	runID := ulid.Make().String()
	logger, err := newLogger(cfg, stderr)
	if err != nil {
		return err
	}
	log := logger.WithField("run_id", runID)

	files, err := replay.ExpandPatterns(cfg.ReplayFiles)
	if err != nil {
		return err
	}
	loader := replay.Loader{
		Logger:   log,
		OnLoaded: func(def replay.Definition) { output.PrintLoadedReplay(stderr, def) },
	}
	defs, err := loader.LoadFiles(files)
	if err != nil {
		output.PrintLoadError(stderr, err)
		return err
	}

	provider, err := tracing.Init(ctx, cfg.Tracing, runID)
	if err != nil {
		return errors.Wrap(err, "init tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("tracing shutdown failed")
		}
	}()

	sinks := []output.LineSink{output.NewWriterSink(stdout)}
	if cfg.OutFile != "" {
		fileSink, err := output.NewFileSink(cfg.OutFile)
		if err != nil {
			return err
		}
		defer fileSink.Close()
		sinks = append(sinks, fileSink)
	}
	sink := output.MultiSink(sinks...)

	var base output.Reporter = output.NewCSVReporter(sink)
	if cfg.JSONOutput {
		base = output.NewJSONReporter(sink, runID)
	}
	reporter := &output.Collecting{Reporter: base}
	if err := reporter.Begin(); err != nil {
		return errors.Wrap(err, "write report header")
	}

	collector := metrics.NewCollector()
	client := httpclient.NewClient(httpclient.ClientOptions{
		Timeout:        cfg.Timeout,
		MaxIdlePerHost: cfg.Concurrency,
	})
	orchestrator := runner.NewOrchestrator(client, runner.RunOptions{
		Iterations:      cfg.Iterations,
		Concurrency:     cfg.Concurrency,
		MeasureBodySize: cfg.BodySize,
		MeasureChecksum: cfg.Checksum,
		WaveRate:        cfg.WaveRate,
		Observer:        runner.MultiObserver(collector, failureLogger{log: log}),
		Tracer:          provider.Tracer(),
		Logger:          log,
	})

	evaluator := threshold.NewEvaluator(thresholds)
	var thresholdResults []threshold.Result
	handle := func(res runner.EndpointResult) error {
		if err := reporter.Report(res); err != nil {
			return errors.Wrap(err, "write report")
		}
		if evaluator.Len() == 0 {
			return nil
		}
		results := evaluator.Evaluate(res)
		for _, r := range threshold.Failed(results) {
			log.WithField("target", r.Target).Warn(r.Message)
		}
		thresholdResults = append(thresholdResults, results...)
		return nil
	}

	var progress *output.ProgressReporter
	if cfg.Progress || isTerminal(stderr) {
		progress = output.NewProgressReporter(collector, progressInterval, stderr)
		progress.Start()
	}

	collector.Start()
	runErr := replayAll(ctx, orchestrator, defs, provider.ShouldPropagate(), log, handle)
	if progress != nil {
		progress.Stop()
	}
	stats := collector.Stats(collector.Elapsed())

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(stderr, stats); err != nil {
			return err
		}
	} else {
		output.PrintReport(stderr, stats)
	}
	output.PrintThresholdResults(stderr, thresholdResults)

	if cfg.HTMLOutput != "" {
		if err := writeHTMLReport(cfg, runID, files, reporter.Results, stats, thresholdResults); err != nil {
			return err
		}
		log.WithField("file", cfg.HTMLOutput).Info("HTML report written")
	}

	if runErr != nil {
		return runErr
	}
	if failed := threshold.Failed(thresholdResults); len(failed) > 0 {
		return &threshold.ThresholdError{Failures: failed}
	}
	return nil
}

// replayAll runs the definitions strictly in order, stopping at the first failure.
func replayAll(ctx context.Context, o *runner.Orchestrator, defs []replay.Definition, propagate bool, log logrus.FieldLogger, handle runner.ResultHandler) error {
	for _, def := range defs {
		builder, err := httpclient.NewRequestBuilder(def.BaseURI, def.Headers, log.WithField("file", def.Path))
		if err != nil {
			return errors.Wrapf(err, "replay file %s", def.Path)
		}
		builder.WithTracePropagation(propagate)

		r := runner.Replay{
			Name:        def.DisplayName(),
			Description: def.Description,
			BaseURI:     def.BaseURI,
			Targets:     def.URIs,
			Requests:    builder,
		}
		if err := o.Run(ctx, r, handle); err != nil {
			return err
		}
	}
	return nil
}

func writeHTMLReport(cfg *config.Config, runID string, files []string, results []runner.EndpointResult, stats metrics.Stats, thresholdResults []threshold.Result) error {
	f, err := os.Create(cfg.HTMLOutput)
	if err != nil {
		return errors.Wrap(err, "create HTML report")
	}
	defer f.Close()
	err = output.GenerateHTMLReport(f, results, stats, thresholdResults, output.ReportMetadata{
		RunID:       runID,
		ReplayFiles: files,
		Iterations:  cfg.Iterations,
		Concurrency: cfg.Concurrency,
	})
	if err != nil {
		return err
	}
	return f.Close()
}

func newLogger(cfg *config.Config, w io.Writer) (*logrus.Logger, error) {
	level := logrus.InfoLevel
	if cfg.LogLevel != "" {
		parsed, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		level = parsed
	}
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(level)
	switch cfg.LogFormat {
	case config.LogFormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			DisableColors: cfg.NoColor,
			FullTimestamp: true,
		})
	}
	return logger, nil
}

// failureLogger reports each failed request at debug level.
type failureLogger struct {
	log logrus.FieldLogger
}

func (failureLogger) ObserveSample(runner.RequestSample) {}

func (f failureLogger) ObserveFailure(target string, err error) {
	f.log.WithField("target", target).WithError(err).Debug("request failed")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && output.ShouldShowProgress(f)
}
