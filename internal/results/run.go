// Package results publishes finished benchmark runs to the optional sinks:
// a Redis history cache, a Kafka stream and a PostgreSQL archive.
package results

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/bench"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-bench/pkg/errors"
)

// Run is the published record of one benchmark invocation.
type Run struct {
	ID         string              `json:"id"`
	Benchmark  string              `json:"benchmark"`
	Unit       string              `json:"unit"`
	StartedAt  time.Time           `json:"started_at"`
	Env        bench.Environment   `json:"env"`
	Summary    bench.Summary       `json:"summary"`
	Throughput float64             `json:"throughput"`
	Counters   map[string]int64    `json:"counters,omitempty"`
	Trials     []bench.TrialRecord `json:"trials"`
}

// NewRun assigns a fresh ID and derives the per-trial throughput at the
// truncated mean. An undefined rate is stored as 0.
func NewRun(benchmark string, unit string, startedAt time.Time, env bench.Environment, records []bench.TrialRecord, summary bench.Summary) *Run {
	run := &Run{
		ID:        uuid.NewString(),
		Benchmark: benchmark,
		Unit:      unit,
		StartedAt: startedAt.UTC(),
		Env:       env,
		Summary:   summary,
		Trials:    records,
	}
	if summary.Trials > 0 {
		if rate, err := bench.Throughput(summary.Units/summary.Trials, summary.TruncatedMean); err == nil {
			run.Throughput = rate
		}
	}
	return run
}

// SetCounter attaches a workload-specific total such as hits found.
func (r *Run) SetCounter(name string, value int64) {
	if r.Counters == nil {
		r.Counters = make(map[string]int64)
	}
	r.Counters[name] = value
}

// Validate rejects records a consumer cannot archive.
func (r *Run) Validate() error {
	var errs []error
	if _, err := uuid.Parse(r.ID); err != nil {
		errs = append(errs, apperrors.Newf(apperrors.ErrParse, "run id %q is not a uuid", r.ID))
	}
	if r.Benchmark == "" {
		errs = append(errs, apperrors.New(apperrors.ErrParse, "run has no benchmark name"))
	}
	if r.Env.Engine == "" {
		errs = append(errs, apperrors.New(apperrors.ErrParse, "run has no engine"))
	}
	if len(r.Trials) != r.Summary.Trials {
		errs = append(errs, apperrors.Newf(apperrors.ErrParse, "run has %d trials, summary says %d", len(r.Trials), r.Summary.Trials))
	}
	return errors.Join(errs...)
}
