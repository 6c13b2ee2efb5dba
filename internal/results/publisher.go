package results

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/resilience"
)

type PublisherOption func(*Publisher)

func WithMetrics(m *metrics.Metrics) PublisherOption {
	return func(p *Publisher) { p.metrics = m }
}

func WithRetry(cfg resilience.RetryConfig) PublisherOption {
	return func(p *Publisher) { p.retry = cfg }
}

func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = logger }
}

// Publisher fans a run out to every sink concurrently. Each sink gets its
// own retry budget and per-attempt timeout; one sink failing does not stop
// the others.
type Publisher struct {
	sinks   []Sink
	timeout time.Duration
	retry   resilience.RetryConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewPublisher(timeout time.Duration, sinks []Sink, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		sinks:   sinks,
		timeout: timeout,
		logger:  slog.Default().With("component", "results-publisher"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish returns the joined errors of the sinks that failed.
func (p *Publisher) Publish(ctx context.Context, run *Run) error {
	if len(p.sinks) == 0 {
		return nil
	}
	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	for _, sink := range p.sinks {
		g.Go(func() error {
			start := time.Now()
			err := resilience.Retry(ctx, "publish "+sink.Name(), p.retry, func(ctx context.Context) error {
				return resilience.WithTimeout(ctx, p.timeout, sink.Name(), func(ctx context.Context) error {
					return sink.Publish(ctx, run)
				})
			})
			if p.metrics != nil {
				p.metrics.PublishResult(sink.Name(), publishStatus(err))
			}
			if err != nil {
				p.logger.Warn("publish failed", "sink", sink.Name(), "run_id", run.ID, "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
				mu.Unlock()
				return nil
			}
			p.logger.Info("run published",
				"sink", sink.Name(),
				"run_id", run.ID,
				"duration", time.Since(start).Round(time.Millisecond),
			)
			return nil
		})
	}
	g.Wait()
	return errors.Join(errs...)
}

func publishStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case resilience.IsTimeout(err):
		return "timeout"
	default:
		return "error"
	}
}
