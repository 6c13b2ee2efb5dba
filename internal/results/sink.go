package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/kafka"
)

// Sink receives finished runs.
type Sink interface {
	Name() string
	Publish(ctx context.Context, run *Run) error
}

func RunKey(id string) string {
	return "bench:run:" + id
}

func HistoryKey(benchmark string) string {
	return "bench:runs:" + benchmark
}

type runStore interface {
	PushRun(ctx context.Context, key string, listKey string, id string, value []byte, ttl time.Duration, keep int64) error
}

// RedisSink caches each run as JSON and keeps a capped list of recent run
// IDs per benchmark.
type RedisSink struct {
	store      runStore
	ttl        time.Duration
	historyLen int64
}

func NewRedisSink(store runStore, ttl time.Duration, historyLen int64) *RedisSink {
	return &RedisSink{store: store, ttl: ttl, historyLen: historyLen}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Publish(ctx context.Context, run *Run) error {
	value, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encoding run %s: %w", run.ID, err)
	}
	return s.store.PushRun(ctx, RunKey(run.ID), HistoryKey(run.Benchmark), run.ID, value, s.ttl, s.historyLen)
}

type eventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// KafkaSink streams runs keyed by benchmark name, so runs of one benchmark
// stay ordered within a partition.
type KafkaSink struct {
	producer eventPublisher
}

func NewKafkaSink(producer eventPublisher) *KafkaSink {
	return &KafkaSink{producer: producer}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Publish(ctx context.Context, run *Run) error {
	return s.producer.Publish(ctx, kafka.Event{Key: run.Benchmark, Value: run})
}

// Schema creates the archive tables.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS bench_runs (
		id                     UUID PRIMARY KEY,
		benchmark              TEXT NOT NULL,
		unit                   TEXT NOT NULL,
		engine                 TEXT NOT NULL,
		engine_version         TEXT NOT NULL,
		started_at             TIMESTAMPTZ NOT NULL,
		trials                 INTEGER NOT NULL,
		mean_seconds           DOUBLE PRECISION NOT NULL,
		truncated_mean_seconds DOUBLE PRECISION NOT NULL,
		throughput             DOUBLE PRECISION NOT NULL,
		units                  BIGINT NOT NULL,
		env                    JSONB NOT NULL,
		counters               JSONB
	)`,
	`CREATE TABLE IF NOT EXISTS bench_trials (
		run_id          UUID NOT NULL REFERENCES bench_runs(id) ON DELETE CASCADE,
		rep             INTEGER NOT NULL,
		elapsed_seconds DOUBLE PRECISION NOT NULL,
		units           BIGINT NOT NULL,
		PRIMARY KEY (run_id, rep)
	)`,
	`CREATE INDEX IF NOT EXISTS bench_runs_benchmark_started
		ON bench_runs (benchmark, engine, started_at DESC)`,
}

type txRunner interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// PostgresSink archives a run and its trials in one transaction. Archiving
// the same run twice is a no-op.
type PostgresSink struct {
	db txRunner
}

func NewPostgresSink(db txRunner) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) Publish(ctx context.Context, run *Run) error {
	_, err := s.Archive(ctx, run)
	return err
}

// Archive reports whether the run was new.
func (s *PostgresSink) Archive(ctx context.Context, run *Run) (bool, error) {
	env, err := json.Marshal(run.Env)
	if err != nil {
		return false, fmt.Errorf("encoding env: %w", err)
	}
	var counters []byte
	if len(run.Counters) > 0 {
		if counters, err = json.Marshal(run.Counters); err != nil {
			return false, fmt.Errorf("encoding counters: %w", err)
		}
	}

	inserted := false
	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO bench_runs (id, benchmark, unit, engine, engine_version, started_at,
				trials, mean_seconds, truncated_mean_seconds, throughput, units, env, counters)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (id) DO NOTHING`,
			run.ID, run.Benchmark, run.Unit, run.Env.Engine, run.Env.EngineVersion, run.StartedAt,
			run.Summary.Trials, run.Summary.Mean, run.Summary.TruncatedMean, run.Throughput,
			run.Summary.Units, env, counters,
		)
		if err != nil {
			return fmt.Errorf("inserting run %s: %w", run.ID, err)
		}
		if n, err := res.RowsAffected(); err != nil || n == 0 {
			return err
		}
		inserted = true

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO bench_trials (run_id, rep, elapsed_seconds, units)
			VALUES ($1, $2, $3, $4)`)
		if err != nil {
			return fmt.Errorf("preparing trial insert: %w", err)
		}
		defer stmt.Close()
		for _, rec := range run.Trials {
			if _, err := stmt.ExecContext(ctx, run.ID, rec.Rep, rec.ElapsedSeconds(), rec.Units); err != nil {
				return fmt.Errorf("inserting trial %d of run %s: %w", rec.Rep, run.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}
