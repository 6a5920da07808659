// Package windows slices a resampled bucket series into fixed-length,
// non-overlapping windows.
//
// Segmentation is positional: a window is 12 consecutive buckets of the
// resampled series, regardless of how much wall-clock time separates them.
// Because empty intervals are dropped during resampling, a window can span
// a real-world gap. Options.RejectGaps discards such windows instead.
package windows

import (
	"time"

	"github.com/HatiCode/ratecast/pkg/series"
)

const (
	// FeatureBuckets is the number of leading buckets features are computed from.
	FeatureBuckets = 10
	// TargetBuckets is the number of trailing buckets used as targets.
	TargetBuckets = 2
	// Size is the number of buckets in a window.
	Size = FeatureBuckets + TargetBuckets
)

// Window is one full chunk of the bucket series.
type Window struct {
	// Index is the position of the window's first bucket in the series.
	Index   int
	Buckets []series.Bucket
}

// Span returns the wall-clock time covered by the window.
func (w Window) Span(interval time.Duration) time.Duration {
	if len(w.Buckets) == 0 {
		return 0
	}
	return w.Buckets[len(w.Buckets)-1].Start.Add(interval).Sub(w.Buckets[0].Start)
}

// Options configures Segment.
type Options struct {
	// Interval is the bucket width. Defaults to series.DefaultInterval.
	Interval time.Duration
	// RejectGaps drops windows whose span exceeds Size*Interval.
	RejectGaps bool
}

// Result is the output of Segment.
type Result struct {
	Windows []Window
	// Tail is the number of trailing buckets that did not fill a window.
	Tail int
	// Rejected counts windows dropped by RejectGaps.
	Rejected int
}

// Segment splits buckets into consecutive windows of Size buckets.
// A short final chunk is discarded. Windows share the backing array of
// buckets and never reorder it.
func Segment(buckets []series.Bucket, opts Options) Result {
	interval := opts.Interval
	if interval <= 0 {
		interval = series.DefaultInterval
	}
	maxSpan := time.Duration(Size) * interval

	var res Result
	i := 0
	for ; i+Size <= len(buckets); i += Size {
		w := Window{Index: i, Buckets: buckets[i : i+Size : i+Size]}
		if opts.RejectGaps && w.Span(interval) > maxSpan {
			res.Rejected++
			continue
		}
		res.Windows = append(res.Windows, w)
	}
	res.Tail = len(buckets) - i

	return res
}

// Flatten concatenates the buckets of ws in order.
func Flatten(ws []Window) []series.Bucket {
	out := make([]series.Bucket, 0, len(ws)*Size)
	for _, w := range ws {
		out = append(out, w.Buckets...)
	}
	return out
}
