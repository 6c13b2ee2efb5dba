package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/backend"
	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/bench"
	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/results"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-bench/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/tracing"
)

// Session owns everything around one benchmark invocation except the
// workload itself.
type Session struct {
	Config    *config.Config
	Benchmark string
	Unit      string
	Engine    backend.Engine
	Metrics   *metrics.Metrics
	Reporter  *bench.Reporter
	RunID     string

	logger     *slog.Logger
	sinks      *results.Sinks
	stopServer func(context.Context) error
	root       *tracing.Span
	startedAt  time.Time
}

// Start opens the configured engine, connects the enabled result sinks and
// starts the metrics server if enabled. The returned context carries the
// run ID.
func Start(ctx context.Context, cfg *config.Config, benchmark string, unit string, stdout io.Writer) (context.Context, *Session, error) {
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx).With("component", benchmark)

	engine, err := backend.Open(cfg.Index.Engine, cfg.Index.Path, backend.Options{
		SegmentMaxSize: cfg.Index.SegmentMaxSize,
		Logger:         log,
	})
	if err != nil {
		return ctx, nil, err
	}

	s := &Session{
		Config:    cfg,
		Benchmark: benchmark,
		Unit:      unit,
		Engine:    engine,
		Metrics:   metrics.New(),
		Reporter:  bench.NewReporter(stdout),
		RunID:     runID,
		logger:    log,
		sinks:     results.Open(ctx, cfg.Results),
	}
	if cfg.Metrics.Enabled {
		checker := health.NewChecker()
		s.sinks.RegisterHealth(checker)
		s.stopServer = metrics.StartServer(cfg.Metrics.Port, s.Metrics, checker)
	}
	log.Info("benchmark starting",
		"engine", engine.Name(),
		"engine_version", engine.Version(),
		"index", cfg.Index.Path,
		"reps", cfg.Bench.Reps,
		"sinks", len(s.sinks.List),
	)
	return ctx, s, nil
}

// Trials prints the header and runs work Config.Bench.Reps times, printing
// an interim line after each trial.
func (s *Session) Trials(ctx context.Context, title string, work bench.WorkFunc) ([]bench.TrialRecord, error) {
	s.startedAt = time.Now()
	ctx, s.root = tracing.StartSpan(ctx, s.Benchmark, s.RunID)
	s.root.SetAttr("engine", s.Engine.Name())

	s.Reporter.Header(title)
	engine := s.Engine.Name()
	runner := bench.NewRunner(s.Config.Bench.Reps,
		bench.WithLogger(s.logger),
		bench.WithObserver(func(rec bench.TrialRecord) {
			s.Reporter.Interim(rec, s.Unit)
		}),
		bench.WithObserver(func(rec bench.TrialRecord) {
			s.Metrics.ObserveTrial(s.Benchmark, engine, rec.ElapsedSeconds(), rec.Units)
		}),
	)

	rep := 0
	records, err := runner.Run(ctx, func(ctx context.Context) (int, error) {
		rep++
		ctx, span := tracing.StartChildSpan(ctx, "trial")
		span.SetAttr("rep", rep)
		units, err := work(ctx)
		span.SetAttr("units", units)
		if err != nil {
			span.SetAttr("error", err.Error())
			s.Metrics.TrialFailed(s.Benchmark, engine, apperrors.Kind(err))
		}
		span.End()
		return units, err
	})
	s.root.End()
	s.root.Log(s.logger)
	return records, err
}

// Finish prints the final block, records the summary metrics, and hands the
// run to the metrics Pushgateway and the result sinks. Export failures are
// logged only.
func (s *Session) Finish(ctx context.Context, records []bench.TrialRecord, counters map[string]int64, extra ...string) (*results.Run, error) {
	summary, err := bench.Summarize(records, s.Config.Bench.TrimFraction)
	if err != nil {
		return nil, fmt.Errorf("summarizing %s: %w", s.Benchmark, err)
	}
	env := bench.CurrentEnvironment(s.Engine.Name(), s.Engine.Version())
	s.Reporter.Final(env, summary, s.Unit, extra...)

	run := results.NewRun(s.Benchmark, s.Unit, s.startedAt, env, records, summary)
	run.ID = s.RunID
	for name, v := range counters {
		run.SetCounter(name, v)
	}
	s.Metrics.RecordSummary(s.Benchmark, env.Engine, summary.Mean, summary.TruncatedMean, run.Throughput)
	s.logger.Info("benchmark complete",
		"trials", summary.Trials,
		"mean_seconds", summary.Mean,
		"truncated_mean_seconds", summary.TruncatedMean,
		"throughput", run.Throughput,
	)

	if url := s.Config.Metrics.PushURL; url != "" {
		if err := s.Metrics.Push(ctx, url, s.Config.Metrics.Job, metrics.RunGrouping(s.RunID)); err != nil {
			s.logger.Warn("metrics push failed", "error", err)
		}
	}
	if len(s.sinks.List) > 0 {
		publisher := results.NewPublisher(s.Config.Results.Timeout, s.sinks.List,
			results.WithMetrics(s.Metrics),
			results.WithLogger(s.logger),
		)
		if err := publisher.Publish(ctx, run); err != nil {
			s.logger.Warn("run not published to every sink", "run_id", run.ID, "error", err)
		}
	}
	return run, nil
}

// Close stops the metrics server and disconnects the sinks.
func (s *Session) Close() {
	if s.stopServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.stopServer(ctx); err != nil {
			s.logger.Warn("stopping metrics server", "error", err)
		}
	}
	if err := s.sinks.Close(); err != nil {
		s.logger.Warn("closing result sinks", "error", err)
	}
}
