package bench

import (
	"errors"
	"math"
	"testing"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/search-bench/pkg/errors"
)

func recordsOf(secs ...float64) []TrialRecord {
	out := make([]TrialRecord, len(secs))
	for i, s := range secs {
		out[i] = TrialRecord{Rep: i + 1, Elapsed: time.Duration(s * float64(time.Second)), Units: 100}
	}
	return out
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name          string
		secs          []float64
		trim          float64
		wantMean      float64
		wantTruncated float64
		wantKept      int
		wantDiscarded int
	}{
		{"one to eight", []float64{1, 2, 3, 4, 5, 6, 7, 8}, DefaultTrimFraction, 4.5, 4.5, 4, 4},
		{"outliers removed", []float64{10, 1, 2, 3, 4, 5, 6, 100}, DefaultTrimFraction, 16.375, 4.5, 4, 4},
		{"two trials", []float64{2, 4}, DefaultTrimFraction, 3, 3, 2, 0},
		{"single trial", []float64{7}, DefaultTrimFraction, 7, 7, 1, 0},
		{"no trimming", []float64{1, 2, 3, 10}, 0, 4, 4, 4, 0},
		{"five trials", []float64{5, 1, 4, 2, 3}, DefaultTrimFraction, 3, 3, 3, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Summarize(recordsOf(tt.secs...), tt.trim)
			if err != nil {
				t.Fatalf("Summarize: %v", err)
			}
			if !approx(s.Mean, tt.wantMean) {
				t.Errorf("mean = %v, want %v", s.Mean, tt.wantMean)
			}
			if !approx(s.TruncatedMean, tt.wantTruncated) {
				t.Errorf("truncated mean = %v, want %v", s.TruncatedMean, tt.wantTruncated)
			}
			if s.Kept != tt.wantKept || s.Discarded != tt.wantDiscarded {
				t.Errorf("kept/discarded = %d/%d, want %d/%d", s.Kept, s.Discarded, tt.wantKept, tt.wantDiscarded)
			}
			if s.Kept+s.Discarded != len(tt.secs) {
				t.Errorf("kept+discarded = %d, want %d", s.Kept+s.Discarded, len(tt.secs))
			}
			if s.Units != 100*len(tt.secs) {
				t.Errorf("units = %d", s.Units)
			}
		})
	}
}

func TestSummarizePercentiles(t *testing.T) {
	s, err := Summarize(recordsOf(10, 9, 8, 7, 6, 5, 4, 3, 2, 1), DefaultTrimFraction)
	if err != nil {
		t.Fatal(err)
	}
	if !approx(s.Min, 1) || !approx(s.Max, 10) {
		t.Errorf("min/max = %v/%v", s.Min, s.Max)
	}
	if !approx(s.P50, 5) || !approx(s.P90, 9) {
		t.Errorf("p50/p90 = %v/%v, want 5/9", s.P50, s.P90)
	}
}

func TestSummarizeInvalid(t *testing.T) {
	tests := []struct {
		name    string
		records []TrialRecord
		trim    float64
	}{
		{"empty", nil, DefaultTrimFraction},
		{"negative trim", recordsOf(1, 2), -0.1},
		{"half trim", recordsOf(1, 2), 0.5},
		{"large trim", recordsOf(1, 2), 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Summarize(tt.records, tt.trim)
			if !errors.Is(err, apperrors.ErrArgument) {
				t.Fatalf("expected ErrArgument, got %v", err)
			}
		})
	}
}

func TestThroughput(t *testing.T) {
	got, err := Throughput(1000, 4)
	if err != nil || !approx(got, 250) {
		t.Errorf("Throughput(1000, 4) = %v, %v", got, err)
	}
	_, err = Throughput(1000, 0)
	if !errors.Is(err, apperrors.ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
	if apperrors.ExitCode(err) != apperrors.ExitDivisionByZero {
		t.Errorf("exit code = %d", apperrors.ExitCode(err))
	}
}

func BenchmarkSummarize(b *testing.B) {
	records := make([]TrialRecord, 1000)
	for i := range records {
		records[i] = TrialRecord{Rep: i + 1, Elapsed: time.Duration(i%97) * time.Millisecond, Units: 1}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Summarize(records, DefaultTrimFraction); err != nil {
			b.Fatal(err)
		}
	}
}
