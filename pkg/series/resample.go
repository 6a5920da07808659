// Package series resamples irregular rate events into fixed-width buckets.
//
// Buckets are left-closed intervals [Start, Start+Interval) aligned to the
// Unix epoch. Only intervals that received at least one event produce a
// bucket, so the output is uniformly spaced in index but not necessarily in
// time.
package series

import (
	"fmt"
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/HatiCode/ratecast/pkg/telemetry"
)

// DefaultInterval is the bucket width used by the forecasting pipeline.
const DefaultInterval = 5 * time.Minute

// StdMode selects the degrees of freedom used for per-bucket standard
// deviation.
type StdMode int

const (
	// Population divides by n (ddof=0). A single-event bucket has std 0.
	Population StdMode = iota
	// Sample divides by n-1 (ddof=1). A single-event bucket has no defined
	// std and is dropped.
	Sample
)

// String implements fmt.Stringer.
func (m StdMode) String() string {
	switch m {
	case Population:
		return "population"
	case Sample:
		return "sample"
	default:
		return fmt.Sprintf("StdMode(%d)", int(m))
	}
}

// ParseStdMode parses "population" or "sample".
func ParseStdMode(s string) (StdMode, error) {
	switch s {
	case "", "population", "pop", "ddof0":
		return Population, nil
	case "sample", "ddof1":
		return Sample, nil
	default:
		return Population, fmt.Errorf("invalid std mode %q (must be population or sample)", s)
	}
}

// Bucket summarizes the events of one non-empty interval.
type Bucket struct {
	Start    time.Time
	RateMean float64
	RateStd  float64
	Count    int
}

// Options configures Resample.
type Options struct {
	// Interval is the bucket width. Defaults to DefaultInterval.
	Interval time.Duration
	// Std selects population or sample standard deviation.
	Std StdMode
}

// AlignTimestamp returns the start of the interval containing ts. Intervals
// are aligned on the Unix epoch for every interval width.
func AlignTimestamp(ts time.Time, interval time.Duration) time.Time {
	ns := ts.UnixNano()
	step := int64(interval)
	off := ns % step
	if off < 0 {
		off += step
	}
	return time.Unix(0, ns-off).UTC()
}

// Resample bins events into buckets ordered by start time.
//
// The input may be unordered (events from several request files are simply
// concatenated); it is not modified.
func Resample(events []telemetry.RawEvent, opts Options) []Bucket {
	if len(events) == 0 {
		return nil
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b telemetry.RawEvent) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	buckets := make([]Bucket, 0, len(sorted)/4+1)
	rates := make([]float64, 0, 64)
	start := AlignTimestamp(sorted[0].Timestamp, interval)

	flush := func() {
		if b, ok := summarize(start, rates, opts.Std); ok {
			buckets = append(buckets, b)
		}
		rates = rates[:0]
	}

	for _, ev := range sorted {
		aligned := AlignTimestamp(ev.Timestamp, interval)
		if !aligned.Equal(start) {
			flush()
			start = aligned
		}
		rates = append(rates, ev.Rate)
	}
	flush()

	return buckets
}

// summarize computes mean and std of one interval's rates.
func summarize(start time.Time, rates []float64, mode StdMode) (Bucket, bool) {
	if len(rates) == 0 {
		return Bucket{}, false
	}

	var mean, std float64
	switch mode {
	case Sample:
		if len(rates) < 2 {
			return Bucket{}, false
		}
		mean, std = stat.MeanStdDev(rates, nil)
	default:
		mean, std = stat.PopMeanStdDev(rates, nil)
	}

	if math.IsNaN(mean) || math.IsNaN(std) {
		return Bucket{}, false
	}

	return Bucket{
		Start:    start,
		RateMean: mean,
		RateStd:  std,
		Count:    len(rates),
	}, true
}
