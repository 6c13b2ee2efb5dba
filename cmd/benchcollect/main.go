// Command benchcollect consumes published benchmark runs from Kafka and
// archives them into PostgreSQL. It serves metrics and health endpoints and
// stops on SIGINT or SIGTERM.
//
// Usage:
//
//	benchcollect [-config configs/bench.yaml]
package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/harness"
	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/results"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/resilience"
)

func main() {
	harness.Main("benchcollect", run)
}

func run(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) error {
	fs := harness.NewFlagSet("benchcollect", stderr)
	configPath := fs.String("config", "", "path to a YAML config file")
	port := fs.Int("port", 0, "metrics and health port (default from config)")
	if err := harness.Parse(fs, args); err != nil {
		return err
	}
	if err := harness.NoArgs(fs); err != nil {
		return err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.Metrics.Port = *port
	}
	logger.SetupWriter(stderr, cfg.Logging.Level, cfg.Logging.Format)
	log := logger.WithComponent("benchcollect")

	db, err := postgres.New(ctx, cfg.Results.Postgres)
	if err != nil {
		return fmt.Errorf("connecting archive: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx, results.Schema...); err != nil {
		return fmt.Errorf("migrating archive: %w", err)
	}

	m := metrics.New()
	const resetTimeout = 30 * time.Second
	breaker := resilience.NewCircuitBreaker("postgres", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     resetTimeout,
		OnStateChange: func(name string, _, to resilience.State) {
			m.SetCircuitState(name, int(to))
		},
	})
	collector := results.NewCollector(results.NewPostgresSink(db), breaker, m)
	// retry rounds pause as long as the breaker stays open
	consumer := kafka.NewConsumer(cfg.Results.Kafka, collector.Handle, kafka.WithRetry(resilience.RetryConfig{
		MaxAttempts:    5,
		InitialDelay:   time.Second,
		MaxDelay:       resetTimeout,
		Multiplier:     2,
		JitterFraction: 0.1,
	}))
	defer consumer.Close()

	checker := health.NewChecker()
	checker.Register("postgres", health.PingCheck(db.Ping))
	checker.Register("kafka", health.PingCheck(func(ctx context.Context) error {
		return kafka.Ping(ctx, cfg.Results.Kafka.Brokers)
	}))
	shutdown := metrics.StartServer(cfg.Metrics.Port, m, checker)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			log.Warn("stopping metrics server", "error", err)
		}
	}()

	log.Info("collector consuming",
		"topic", cfg.Results.Kafka.Topic,
		"group", cfg.Results.Kafka.ConsumerGroup,
		"metrics_port", cfg.Metrics.Port,
	)
	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("consuming runs: %w", err)
	}
	log.Info("collector stopped")
	return nil
}
