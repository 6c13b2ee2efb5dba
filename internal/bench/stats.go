package bench

import (
	"math"
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/search-bench/pkg/errors"
)

// DefaultTrimFraction discards the fastest and slowest quarter of trials.
const DefaultTrimFraction = 0.25

// Summary aggregates a run's trial durations. All times are in seconds.
type Summary struct {
	Trials        int     `json:"trials"`
	Mean          float64 `json:"mean_seconds"`
	TruncatedMean float64 `json:"truncated_mean_seconds"`
	Kept          int     `json:"kept"`
	Discarded     int     `json:"discarded"`
	Min           float64 `json:"min_seconds"`
	Max           float64 `json:"max_seconds"`
	P50           float64 `json:"p50_seconds"`
	P90           float64 `json:"p90_seconds"`
	Units         int     `json:"units"`
}

// Summarize computes the mean over all records and the truncated mean over
// the sorted durations with floor(trimFraction*n) trials chopped from each
// end.
func Summarize(records []TrialRecord, trimFraction float64) (Summary, error) {
	n := len(records)
	if n == 0 {
		return Summary{}, apperrors.New(apperrors.ErrArgument, "no trials to summarize")
	}
	if trimFraction < 0 || trimFraction >= 0.5 {
		return Summary{}, apperrors.Newf(apperrors.ErrArgument, "trim fraction must be in [0, 0.5), got %g", trimFraction)
	}

	secs := make([]float64, n)
	units := 0
	for i, rec := range records {
		secs[i] = rec.ElapsedSeconds()
		units += rec.Units
	}
	sort.Float64s(secs)

	numToChop := int(math.Floor(trimFraction * float64(n)))
	var total, truncated float64
	kept := 0
	for i, s := range secs {
		total += s
		if i < numToChop || i >= n-numToChop {
			continue
		}
		truncated += s
		kept++
	}
	if kept == 0 {
		return Summary{}, apperrors.Newf(apperrors.ErrArgument, "trim fraction %g leaves no trials of %d", trimFraction, n)
	}

	return Summary{
		Trials:        n,
		Mean:          total / float64(n),
		TruncatedMean: truncated / float64(kept),
		Kept:          kept,
		Discarded:     n - kept,
		Min:           secs[0],
		Max:           secs[n-1],
		P50:           percentile(secs, 50),
		P90:           percentile(secs, 90),
		Units:         units,
	}, nil
}

// Throughput returns units per second.
func Throughput(units int, seconds float64) (float64, error) {
	if seconds == 0 {
		return 0, apperrors.Newf(apperrors.ErrDivisionByZero, "%d units completed in zero seconds", units)
	}
	return float64(units) / seconds, nil
}

// percentile uses the nearest-rank method over ascending values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
