package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/search-bench/pkg/resilience"
)

// fakeReader serves a fixed partition and cancels the consumer once it is
// drained.
type fakeReader struct {
	msgs      []kafka.Message
	next      int
	committed []int64
	cancel    context.CancelFunc
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if f.next == len(f.msgs) {
		f.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := f.msgs[f.next]
	f.next++
	return msg, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error { return nil }

var fastRetry = WithRetry(resilience.RetryConfig{
	MaxAttempts:  2,
	InitialDelay: time.Millisecond,
	MaxDelay:     time.Millisecond,
})

func TestConsumerRedeliversFailedMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &fakeReader{
		msgs: []kafka.Message{
			{Offset: 5, Value: []byte("run-5")},
			{Offset: 6, Value: []byte("run-6")},
		},
		cancel: cancel,
	}

	var handled []string
	failures := 0
	c := newConsumer(r, func(_ context.Context, _ []byte, value []byte) error {
		handled = append(handled, string(value))
		if string(value) == "run-5" && failures < 3 {
			failures++
			if len(r.committed) != 0 {
				t.Errorf("offsets %v committed while run-5 was failing", r.committed)
			}
			return errors.New("archive unavailable")
		}
		return nil
	}, fastRetry)

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	want := []string{"run-5", "run-5", "run-5", "run-5", "run-6"}
	if len(handled) != len(want) {
		t.Fatalf("handled = %v, want %v", handled, want)
	}
	for i := range want {
		if handled[i] != want[i] {
			t.Fatalf("handled = %v, want %v", handled, want)
		}
	}
	if len(r.committed) != 2 || r.committed[0] != 5 || r.committed[1] != 6 {
		t.Errorf("committed = %v, want [5 6]", r.committed)
	}
}

func TestConsumerRetriesOpenCircuit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &fakeReader{msgs: []kafka.Message{{Offset: 1}}, cancel: cancel}

	calls := 0
	c := newConsumer(r, func(context.Context, []byte, []byte) error {
		calls++
		if calls == 1 {
			return resilience.ErrCircuitOpen
		}
		return nil
	}, fastRetry)

	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if calls != 2 || len(r.committed) != 1 {
		t.Errorf("calls = %d, committed = %v", calls, r.committed)
	}
}

func TestConsumerStopsWithoutCommittingOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &fakeReader{msgs: []kafka.Message{{Offset: 9}}, cancel: cancel}

	c := newConsumer(r, func(context.Context, []byte, []byte) error {
		cancel()
		return errors.New("archive unavailable")
	}, fastRetry)

	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if len(r.committed) != 0 {
		t.Errorf("committed = %v after shutdown mid-retry", r.committed)
	}
}
