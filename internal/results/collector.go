package results

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/resilience"
)

type archiver interface {
	Archive(ctx context.Context, run *Run) (bool, error)
}

// Collector archives runs consumed from the results topic. Undecodable or
// invalid messages are skipped so they do not block the partition. Archive
// failures are returned, and the consumer hands the same run back until it
// is stored.
type Collector struct {
	archive archiver
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewCollector(a archiver, breaker *resilience.CircuitBreaker, m *metrics.Metrics) *Collector {
	return &Collector{
		archive: a,
		breaker: breaker,
		metrics: m,
		logger:  slog.Default().With("component", "run-collector"),
	}
}

// Handle is a kafka.MessageHandler.
func (c *Collector) Handle(ctx context.Context, key []byte, value []byte) error {
	run, err := kafka.DecodeJSON[Run](value)
	if err == nil {
		err = run.Validate()
	}
	if err != nil {
		c.logger.Warn("skipping message", "key", string(key), "error", err)
		c.record("skipped")
		return nil
	}

	var inserted bool
	err = c.breaker.Execute(func() error {
		var archiveErr error
		inserted, archiveErr = c.archive.Archive(ctx, &run)
		return archiveErr
	})
	if err != nil {
		c.record("error")
		return err
	}
	if !inserted {
		c.logger.Info("run already archived", "run_id", run.ID)
		c.record("skipped")
		return nil
	}
	c.logger.Info("run archived",
		"run_id", run.ID,
		"benchmark", run.Benchmark,
		"engine", run.Env.Engine,
		"trials", len(run.Trials),
	)
	c.record("ok")
	return nil
}

func (c *Collector) record(status string) {
	if c.metrics != nil {
		c.metrics.RunArchived(status)
	}
}
