package results

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/redis"
)

// Sinks holds the connected sinks and the clients behind them.
type Sinks struct {
	List    []Sink
	closers []io.Closer
	pings   map[string]func(ctx context.Context) error
}

// Open connects every enabled sink. A sink that cannot connect is logged
// and left out; the benchmark still runs.
func Open(ctx context.Context, cfg config.ResultsConfig) *Sinks {
	logger := slog.Default().With("component", "results")
	s := &Sinks{pings: make(map[string]func(ctx context.Context) error)}

	if cfg.Redis.Enabled {
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("redis sink disabled", "error", err)
		} else {
			s.add(NewRedisSink(client, cfg.Redis.RunTTL, cfg.Redis.HistoryLen), client, client.Ping)
		}
	}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		s.add(NewKafkaSink(producer), producer, producer.Ping)
	}
	if cfg.Postgres.Enabled {
		client, err := postgres.New(ctx, cfg.Postgres)
		switch {
		case err != nil:
			logger.Warn("postgres sink disabled", "error", err)
		default:
			if err := client.Migrate(ctx, Schema...); err != nil {
				logger.Warn("postgres sink disabled", "error", err)
				client.Close()
				break
			}
			s.add(NewPostgresSink(client), client, client.Ping)
		}
	}
	return s
}

func (s *Sinks) add(sink Sink, closer io.Closer, ping func(ctx context.Context) error) {
	s.List = append(s.List, sink)
	s.closers = append(s.closers, closer)
	s.pings[sink.Name()] = ping
}

// RegisterHealth adds a readiness check per connected sink.
func (s *Sinks) RegisterHealth(checker *health.Checker) {
	for name, ping := range s.pings {
		checker.Register(name, health.PingCheck(ping))
	}
}

func (s *Sinks) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
