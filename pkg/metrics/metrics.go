// Package metrics defines the Prometheus collectors for benchmark runs and
// exposes them for scraping or for a Pushgateway push at the end of a run.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the benchmark collectors and the registry they belong to.
type Metrics struct {
	registry *prometheus.Registry

	TrialDuration        *prometheus.HistogramVec
	TrialsTotal          *prometheus.CounterVec
	TrialErrorsTotal     *prometheus.CounterVec
	UnitsTotal           *prometheus.CounterVec
	WriterReopensTotal   *prometheus.CounterVec
	MeanSeconds          *prometheus.GaugeVec
	TruncatedMeanSeconds *prometheus.GaugeVec
	Throughput           *prometheus.GaugeVec
	PublishTotal         *prometheus.CounterVec
	ArchivedRunsTotal    *prometheus.CounterVec
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates the collectors on a fresh registry, alongside the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		TrialDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bench_trial_duration_seconds",
				Help:    "Wall-clock duration of one benchmark trial.",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 16),
			},
			[]string{"benchmark", "engine"},
		),
		TrialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bench_trials_total",
				Help: "Trials run by benchmark, engine and status (ok, error).",
			},
			[]string{"benchmark", "engine", "status"},
		),
		TrialErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bench_trial_errors_total",
				Help: "Failed trials by error kind (io, parse, index, query, ...).",
			},
			[]string{"benchmark", "engine", "kind"},
		),
		UnitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bench_units_total",
				Help: "Units of work completed (documents, queries).",
			},
			[]string{"benchmark", "engine"},
		),
		WriterReopensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bench_writer_reopens_total",
				Help: "Index writer close/reopen cycles during indexing trials.",
			},
			[]string{"engine"},
		),
		MeanSeconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bench_mean_seconds",
				Help: "Mean trial duration of the last completed run.",
			},
			[]string{"benchmark", "engine"},
		),
		TruncatedMeanSeconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bench_truncated_mean_seconds",
				Help: "Truncated mean trial duration of the last completed run.",
			},
			[]string{"benchmark", "engine"},
		),
		Throughput: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bench_throughput_units_per_second",
				Help: "Units per second at the truncated mean.",
			},
			[]string{"benchmark", "engine"},
		),
		PublishTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bench_results_published_total",
				Help: "Result publish attempts by sink and status.",
			},
			[]string{"sink", "status"},
		),
		ArchivedRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bench_runs_archived_total",
				Help: "Runs consumed from Kafka by status (ok, error, skipped).",
			},
			[]string{"status"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.TrialDuration,
		m.TrialsTotal,
		m.TrialErrorsTotal,
		m.UnitsTotal,
		m.WriterReopensTotal,
		m.MeanSeconds,
		m.TruncatedMeanSeconds,
		m.Throughput,
		m.PublishTotal,
		m.ArchivedRunsTotal,
		m.CircuitBreakerState,
	)
	return m
}

// ObserveTrial records one successful trial.
func (m *Metrics) ObserveTrial(benchmark string, engine string, seconds float64, units int) {
	m.TrialDuration.WithLabelValues(benchmark, engine).Observe(seconds)
	m.TrialsTotal.WithLabelValues(benchmark, engine, "ok").Inc()
	m.UnitsTotal.WithLabelValues(benchmark, engine).Add(float64(units))
}

// TrialFailed records a failed trial. kind is the error's class as given by
// errors.Kind.
func (m *Metrics) TrialFailed(benchmark string, engine string, kind string) {
	m.TrialsTotal.WithLabelValues(benchmark, engine, "error").Inc()
	m.TrialErrorsTotal.WithLabelValues(benchmark, engine, kind).Inc()
}

// RecordSummary sets the run-level gauges. A throughput of 0 means the rate
// was undefined.
func (m *Metrics) RecordSummary(benchmark string, engine string, mean float64, truncatedMean float64, throughput float64) {
	m.MeanSeconds.WithLabelValues(benchmark, engine).Set(mean)
	m.TruncatedMeanSeconds.WithLabelValues(benchmark, engine).Set(truncatedMean)
	m.Throughput.WithLabelValues(benchmark, engine).Set(throughput)
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the scrape handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) WriterReopened(engine string) {
	m.WriterReopensTotal.WithLabelValues(engine).Inc()
}

// PublishResult counts one sink publish. status is ok, timeout or error.
func (m *Metrics) PublishResult(sink string, status string) {
	m.PublishTotal.WithLabelValues(sink, status).Inc()
}

// RunArchived counts a consumed run. status is ok, error or skipped.
func (m *Metrics) RunArchived(status string) {
	m.ArchivedRunsTotal.WithLabelValues(status).Inc()
}

// SetCircuitState records a breaker state as 0 closed, 1 open, 2 half-open.
func (m *Metrics) SetCircuitState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
