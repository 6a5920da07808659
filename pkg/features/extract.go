// Package features turns bucket windows and test records into the fixed
// feature and target vectors consumed by the regression model.
//
// Every row starts with the client and server ids from a Vocabulary,
// followed by seven statistics of a sequence of per-bucket rate means and
// standard deviations:
//
//	[client_id, server_id, mean, std_of_std, last_mean, last_std, cv, delta, slope]
//
// For training windows the sequence is the first 10 buckets and the target
// is the mean/std of buckets 10 and 11. For test records the sequence is the
// full per-sub-record list and there is no target.
package features

import (
	"errors"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/HatiCode/ratecast/pkg/telemetry"
	"github.com/HatiCode/ratecast/pkg/windows"
)

const (
	// NumFeatures is the length of a FeatureVector.
	NumFeatures = 9
	// NumTargets is the length of a TargetVector.
	NumTargets = 4

	// cvEpsilon keeps cv finite when the mean rate is zero.
	cvEpsilon = 1e-5

	// fallbackLen is the length of the zero sequence substituted for a test
	// record without usable rates.
	fallbackLen = 10
)

// ErrShortWindow is returned for a window that does not hold exactly
// windows.Size buckets.
var ErrShortWindow = errors.New("window has too few buckets")

// FeatureVector is one model input row.
type FeatureVector [NumFeatures]float64

// TargetVector is one model output row:
// [mean(b10), std(b10), mean(b11), std(b11)].
type TargetVector [NumTargets]float64

// Extractor computes feature and target vectors using a fixed vocabulary.
type Extractor struct {
	vocab Vocabulary
}

// NewExtractor returns an Extractor resolving site codes through vocab.
func NewExtractor(vocab Vocabulary) *Extractor {
	return &Extractor{vocab: vocab}
}

// Vocabulary returns the extractor's vocabulary.
func (e *Extractor) Vocabulary() Vocabulary { return e.vocab }

// ExtractWindow derives the feature and target vectors of one window.
//
// Returns *UnknownCodeError if either code is not in the vocabulary and
// ErrShortWindow if the window is not full.
func (e *Extractor) ExtractWindow(client, server string, w windows.Window) (FeatureVector, TargetVector, error) {
	if len(w.Buckets) < windows.Size {
		return FeatureVector{}, TargetVector{}, fmt.Errorf("%w: got %d, want %d", ErrShortWindow, len(w.Buckets), windows.Size)
	}

	head, err := e.ids(client, server)
	if err != nil {
		return FeatureVector{}, TargetVector{}, err
	}

	means := make([]float64, windows.FeatureBuckets)
	stds := make([]float64, windows.FeatureBuckets)
	for i, b := range w.Buckets[:windows.FeatureBuckets] {
		means[i] = b.RateMean
		stds[i] = b.RateStd
	}

	fv := assemble(head, describe(means, stds))

	t0 := w.Buckets[windows.FeatureBuckets]
	t1 := w.Buckets[windows.FeatureBuckets+1]
	tv := TargetVector{t0.RateMean, t0.RateStd, t1.RateMean, t1.RateStd}

	return fv, tv, nil
}

// ExtractTestRecord derives the feature vector of one test record.
//
// Each rate list contributes its mean and population std. A record with no
// usable rate lists is described by a sequence of 10 zeros, which yields
// zero for every statistic.
func (e *Extractor) ExtractTestRecord(rec telemetry.TestRecord) (FeatureVector, error) {
	head, err := e.ids(rec.Client, rec.Server)
	if err != nil {
		return FeatureVector{}, err
	}

	means := make([]float64, 0, len(rec.Rates))
	stds := make([]float64, 0, len(rec.Rates))
	for _, rates := range rec.Rates {
		if len(rates) == 0 {
			continue
		}
		m, s := stat.PopMeanStdDev(rates, nil)
		means = append(means, m)
		stds = append(stds, s)
	}

	if len(means) == 0 || len(stds) == 0 {
		means = make([]float64, fallbackLen)
		stds = make([]float64, fallbackLen)
	}

	return assemble(head, describe(means, stds)), nil
}

func (e *Extractor) ids(client, server string) ([2]float64, error) {
	c, err := e.vocab.Resolve(RoleClient, client)
	if err != nil {
		return [2]float64{}, err
	}
	s, err := e.vocab.Resolve(RoleServer, server)
	if err != nil {
		return [2]float64{}, err
	}
	return [2]float64{float64(c), float64(s)}, nil
}

func assemble(head [2]float64, stats [NumFeatures - 2]float64) FeatureVector {
	var fv FeatureVector
	fv[0], fv[1] = head[0], head[1]
	copy(fv[2:], stats[:])
	return fv
}

// describe computes the seven sequence statistics
// [mean, std_of_std, last_mean, last_std, cv, delta, slope].
// means and stds have equal, non-zero length.
func describe(means, stds []float64) [NumFeatures - 2]float64 {
	n := len(means)
	mean := stat.Mean(means, nil)

	var delta float64
	if n > 1 {
		delta = means[n-1] - means[n-2]
	}

	return [NumFeatures - 2]float64{
		mean,
		stat.PopStdDev(stds, nil),
		means[n-1],
		stds[n-1],
		stat.Mean(stds, nil) / (mean + cvEpsilon),
		delta,
		Slope(means),
	}
}

// Slope returns the ordinary least squares slope of ys regressed on their
// indices 0..n-1. It is 0 for fewer than two points or when every value is
// identical.
func Slope(ys []float64) float64 {
	if len(ys) < 2 {
		return 0
	}
	if slices.Min(ys) == slices.Max(ys) {
		return 0
	}

	xs := make([]float64, len(ys))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, beta := stat.LinearRegression(xs, ys, nil, false)
	return beta
}
