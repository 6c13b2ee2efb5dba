package results

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/resilience"
)

type fakeArchive struct {
	seen map[string]bool
	err  error
}

func (f *fakeArchive) Archive(_ context.Context, run *Run) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen[run.ID] {
		return false, nil
	}
	f.seen[run.ID] = true
	return true, nil
}

func TestCollector(t *testing.T) {
	m := metrics.New()
	archive := &fakeArchive{seen: map[string]bool{}}
	c := NewCollector(archive, resilience.NewCircuitBreaker("postgres", resilience.CircuitBreakerConfig{}), m)

	value, err := json.Marshal(sampleRun(t))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := c.Handle(ctx, []byte("index"), value); err != nil {
		t.Fatal(err)
	}
	if err := c.Handle(ctx, []byte("index"), value); err != nil {
		t.Fatal(err)
	}
	if err := c.Handle(ctx, []byte("index"), []byte("{garbage")); err != nil {
		t.Fatalf("undecodable message should be skipped, got %v", err)
	}
	if err := c.Handle(ctx, []byte("index"), []byte(`{"id":"x"}`)); err != nil {
		t.Fatalf("invalid run should be skipped, got %v", err)
	}

	if got := testutil.ToFloat64(m.ArchivedRunsTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("ok = %v", got)
	}
	if got := testutil.ToFloat64(m.ArchivedRunsTotal.WithLabelValues("skipped")); got != 3 {
		t.Errorf("skipped = %v", got)
	}
}

func TestCollectorOpensCircuit(t *testing.T) {
	m := metrics.New()
	boom := errors.New("database down")
	archive := &fakeArchive{err: boom}
	breaker := resilience.NewCircuitBreaker("postgres", resilience.CircuitBreakerConfig{FailureThreshold: 2})
	c := NewCollector(archive, breaker, m)

	value, _ := json.Marshal(sampleRun(t))
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := c.Handle(ctx, nil, value); !errors.Is(err, boom) {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	if err := c.Handle(ctx, nil, value); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if got := testutil.ToFloat64(m.ArchivedRunsTotal.WithLabelValues("error")); got != 3 {
		t.Errorf("error = %v", got)
	}
}
