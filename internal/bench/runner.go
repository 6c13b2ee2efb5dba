// Package bench runs repeated timed trials of a unit of work and summarises
// their durations with a mean and a truncated mean.
package bench

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/search-bench/pkg/errors"
)

// WorkFunc performs one trial and reports how many units (documents,
// queries) it completed.
type WorkFunc func(ctx context.Context) (units int, err error)

// TrialRecord is the outcome of one repetition.
type TrialRecord struct {
	Rep     int           `json:"rep"`
	Elapsed time.Duration `json:"elapsed_ns"`
	Units   int           `json:"units"`
}

func (r TrialRecord) ElapsedSeconds() float64 {
	return r.Elapsed.Seconds()
}

// Observer is notified after each trial is recorded.
type Observer func(TrialRecord)

type Option func(*Runner)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

func WithObserver(obs Observer) Option {
	return func(r *Runner) { r.observers = append(r.observers, obs) }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// Runner executes a WorkFunc a fixed number of times, sequentially.
type Runner struct {
	reps      int
	now       func() time.Time
	observers []Observer
	logger    *slog.Logger
}

func NewRunner(reps int, opts ...Option) *Runner {
	r := &Runner{
		reps:   reps,
		now:    time.Now,
		logger: slog.Default().With("component", "trial-runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the trials. The first failing trial aborts the run; the
// records completed before it are returned alongside the error.
func (r *Runner) Run(ctx context.Context, work WorkFunc) ([]TrialRecord, error) {
	if r.reps < 1 {
		return nil, apperrors.Newf(apperrors.ErrArgument, "reps must be >= 1, got %d", r.reps)
	}
	records := make([]TrialRecord, 0, r.reps)
	for rep := 1; rep <= r.reps; rep++ {
		if err := ctx.Err(); err != nil {
			return records, fmt.Errorf("before rep %d: %w", rep, err)
		}
		start := r.now()
		units, err := work(ctx)
		end := r.now()
		if err != nil {
			r.logger.Error("trial failed", "rep", rep, "kind", apperrors.Kind(err), "error", err)
			return records, fmt.Errorf("rep %d: %w", rep, err)
		}
		elapsed := end.Sub(start)
		if elapsed < 0 {
			elapsed = 0
		}
		rec := TrialRecord{Rep: rep, Elapsed: elapsed, Units: units}
		records = append(records, rec)
		r.logger.Debug("trial complete",
			"rep", rep,
			"elapsed", elapsed,
			"units", units,
		)
		for _, obs := range r.observers {
			obs(rec)
		}
	}
	return records, nil
}

// RunTrials runs work numReps times with default options.
func RunTrials(ctx context.Context, numReps int, work WorkFunc) ([]TrialRecord, error) {
	return NewRunner(numReps).Run(ctx, work)
}
