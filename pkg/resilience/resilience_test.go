package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestCircuitBreakerLifecycle(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	var changes []string
	cb := NewCircuitBreaker("postgres", CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Second,
		Now:              clock.Now,
		OnStateChange: func(name string, from, to State) {
			changes = append(changes, from.String()+">"+to.String())
		},
	})

	fail := func() error { return errBoom }
	ok := func() error { return nil }

	if err := cb.Execute(fail); !errors.Is(err, errBoom) {
		t.Fatalf("first failure = %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("state after 1 failure = %s", cb.State())
	}
	cb.Execute(fail)
	if cb.State() != StateOpen {
		t.Fatalf("state after 2 failures = %s", cb.State())
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Fatalf("open circuit let call through: err=%v called=%v", err, called)
	}

	clock.Advance(time.Second)
	cb.Execute(fail)
	if cb.State() != StateOpen {
		t.Fatalf("failed probe should reopen, got %s", cb.State())
	}

	clock.Advance(time.Second)
	if err := cb.Execute(ok); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("successful probe should close, got %s", cb.State())
	}

	want := []string{"closed>open", "open>half-open", "half-open>open", "open>half-open", "half-open>closed"}
	if len(changes) != len(want) {
		t.Fatalf("changes = %v, want %v", changes, want)
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Errorf("change %d = %s, want %s", i, changes[i], want[i])
		}
	}
}

func TestCircuitBreakerSuccessResetsCount(t *testing.T) {
	cb := NewCircuitBreaker("redis", CircuitBreakerConfig{FailureThreshold: 2})
	cb.Execute(func() error { return errBoom })
	cb.Execute(func() error { return nil })
	cb.Execute(func() error { return errBoom })
	if cb.State() != StateClosed {
		t.Errorf("non-consecutive failures opened the circuit")
	}
	cb.Execute(func() error { return errBoom })
	cb.Reset()
	if cb.State() != StateClosed {
		t.Errorf("Reset left state %s", cb.State())
	}
}

func TestRetry(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	calls := 0
	err := Retry(context.Background(), "flaky", cfg, func(context.Context) error {
		calls++
		if calls < 3 {
			return errBoom
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("Retry = %v after %d calls", err, calls)
	}

	calls = 0
	err = Retry(context.Background(), "dead", cfg, func(context.Context) error {
		calls++
		return errBoom
	})
	if !errors.Is(err, errBoom) || calls != 3 {
		t.Fatalf("Retry = %v after %d calls", err, calls)
	}
}

func TestRetryStopsOnOpenCircuit(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "guarded", RetryConfig{InitialDelay: time.Millisecond}, func(context.Context) error {
		calls++
		return ErrCircuitOpen
	})
	if !errors.Is(err, ErrCircuitOpen) || calls != 1 {
		t.Fatalf("Retry = %v after %d calls", err, calls)
	}
}

func TestRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, "cancelled", RetryConfig{}, func(context.Context) error {
		t.Fatal("fn called with cancelled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWithTimeout(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	var te *TimeoutError
	if !errors.As(err, &te) || te.Op != "slow" || te.Limit != 10*time.Millisecond {
		t.Fatalf("expected TimeoutError for slow, got %#v", err)
	}

	err = WithTimeout(context.Background(), time.Second, "fast", func(context.Context) error { return errBoom })
	if !errors.Is(err, errBoom) || IsTimeout(err) {
		t.Fatalf("expected fn error, got %v", err)
	}

	err = WithTimeout(context.Background(), 0, "unbounded", func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("zero timeout: %v", err)
	}
}

func TestWithTimeoutIgnoringContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	err := WithTimeout(context.Background(), 10*time.Millisecond, "stuck", func(context.Context) error {
		<-release
		return nil
	})
	if !IsTimeout(err) {
		t.Fatalf("expected a timeout, got %v", err)
	}
}

func TestWithTimeoutParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WithTimeout(ctx, time.Second, "publish", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) || IsTimeout(err) {
		t.Fatalf("expected the caller's cancellation, got %v", err)
	}
}
