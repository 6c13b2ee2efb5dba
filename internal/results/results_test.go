package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/search-bench/internal/bench"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-bench/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/resilience"
)

func sampleRun(t *testing.T) *Run {
	t.Helper()
	records := []bench.TrialRecord{
		{Rep: 1, Elapsed: 2 * time.Second, Units: 100},
		{Rep: 2, Elapsed: 4 * time.Second, Units: 100},
	}
	summary, err := bench.Summarize(records, 0.25)
	if err != nil {
		t.Fatal(err)
	}
	env := bench.Environment{Engine: "native", EngineVersion: "spdx v2"}
	return NewRun("index", "docs", time.Unix(1700000000, 0), env, records, summary)
}

func TestNewRun(t *testing.T) {
	run := sampleRun(t)
	if err := run.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	// 100 docs per trial at a 3s truncated mean
	if got := run.Throughput; got < 33.33 || got > 33.34 {
		t.Errorf("throughput = %v", got)
	}
	other := sampleRun(t)
	if run.ID == other.ID {
		t.Error("run IDs collide")
	}
	run.SetCounter("total_found", 42)
	data, err := json.Marshal(run)
	if err != nil {
		t.Fatal(err)
	}
	var back Run
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Counters["total_found"] != 42 || back.Trials[1].Elapsed != 4*time.Second {
		t.Errorf("round trip lost fields: %+v", back)
	}
}

func TestNewRunZeroDuration(t *testing.T) {
	records := []bench.TrialRecord{{Rep: 1, Units: 5}}
	summary, err := bench.Summarize(records, 0)
	if err != nil {
		t.Fatal(err)
	}
	run := NewRun("search", "queries", time.Now(), bench.Environment{Engine: "bluge"}, records, summary)
	if run.Throughput != 0 {
		t.Errorf("throughput = %v, want 0 for an undefined rate", run.Throughput)
	}
}

func TestValidate(t *testing.T) {
	run := &Run{ID: "nope", Summary: bench.Summary{Trials: 1}}
	err := run.Validate()
	if !errors.Is(err, apperrors.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	for _, want := range []string{"not a uuid", "no benchmark", "no engine", "0 trials"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

type fakeStore struct {
	key, listKey, id string
	value            []byte
	ttl              time.Duration
	keep             int64
}

func (f *fakeStore) PushRun(_ context.Context, key, listKey, id string, value []byte, ttl time.Duration, keep int64) error {
	f.key, f.listKey, f.id, f.value, f.ttl, f.keep = key, listKey, id, value, ttl, keep
	return nil
}

func TestRedisSink(t *testing.T) {
	store := &fakeStore{}
	run := sampleRun(t)
	sink := NewRedisSink(store, time.Hour, 50)
	if err := sink.Publish(context.Background(), run); err != nil {
		t.Fatal(err)
	}
	if store.key != "bench:run:"+run.ID || store.listKey != "bench:runs:index" || store.id != run.ID {
		t.Errorf("keys = %q %q %q", store.key, store.listKey, store.id)
	}
	if store.ttl != time.Hour || store.keep != 50 {
		t.Errorf("ttl %v keep %d", store.ttl, store.keep)
	}
	var stored Run
	if err := json.Unmarshal(store.value, &stored); err != nil || stored.ID != run.ID {
		t.Errorf("stored value %s: %v", store.value, err)
	}
}

type fakeProducer struct{ events []kafka.Event }

func (f *fakeProducer) Publish(_ context.Context, e kafka.Event) error {
	f.events = append(f.events, e)
	return nil
}

func TestKafkaSink(t *testing.T) {
	p := &fakeProducer{}
	run := sampleRun(t)
	if err := NewKafkaSink(p).Publish(context.Background(), run); err != nil {
		t.Fatal(err)
	}
	if len(p.events) != 1 || p.events[0].Key != "index" || p.events[0].Value != run {
		t.Errorf("events = %+v", p.events)
	}
}

type fakeTx struct{ err error }

func (f fakeTx) InTx(context.Context, func(*sql.Tx) error) error { return f.err }

func TestPostgresSinkError(t *testing.T) {
	boom := errors.New("connection reset")
	inserted, err := NewPostgresSink(fakeTx{err: boom}).Archive(context.Background(), sampleRun(t))
	if !errors.Is(err, boom) || inserted {
		t.Fatalf("Archive = %v, %v", inserted, err)
	}
}

type scriptedSink struct {
	name  string
	mu    sync.Mutex
	calls int
	fails int
	block bool
}

func (s *scriptedSink) Name() string { return s.name }

func (s *scriptedSink) Publish(ctx context.Context, _ *Run) error {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if n <= s.fails {
		return errors.New("transient")
	}
	return nil
}

func TestPublisher(t *testing.T) {
	m := metrics.New()
	ok := &scriptedSink{name: "redis"}
	flaky := &scriptedSink{name: "kafka", fails: 1}
	dead := &scriptedSink{name: "postgres", fails: 100}
	slow := &scriptedSink{name: "slow", block: true}

	p := NewPublisher(20*time.Millisecond, []Sink{ok, flaky, dead, slow},
		WithMetrics(m),
		WithRetry(resilience.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond}),
	)
	err := p.Publish(context.Background(), sampleRun(t))
	if err == nil {
		t.Fatal("expected joined error")
	}
	if !strings.Contains(err.Error(), "postgres") || !strings.Contains(err.Error(), "slow") {
		t.Errorf("error = %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("timeout not in chain: %v", err)
	}
	if strings.Contains(err.Error(), "kafka") || strings.Contains(err.Error(), "redis:") {
		t.Errorf("recovered sinks reported: %v", err)
	}
	if ok.calls != 1 || flaky.calls != 2 || dead.calls != 2 {
		t.Errorf("calls: redis=%d kafka=%d postgres=%d", ok.calls, flaky.calls, dead.calls)
	}
	if got := testutil.ToFloat64(m.PublishTotal.WithLabelValues("postgres", "error")); got != 1 {
		t.Errorf("postgres errors = %v", got)
	}
	if got := testutil.ToFloat64(m.PublishTotal.WithLabelValues("kafka", "ok")); got != 1 {
		t.Errorf("kafka ok = %v", got)
	}
	if got := testutil.ToFloat64(m.PublishTotal.WithLabelValues("slow", "timeout")); got != 1 {
		t.Errorf("slow timeouts = %v", got)
	}
}

func TestPublisherNoSinks(t *testing.T) {
	if err := NewPublisher(time.Second, nil).Publish(context.Background(), sampleRun(t)); err != nil {
		t.Fatal(err)
	}
}
