package dataset

import (
	"fmt"

	"github.com/HatiCode/ratecast/pkg/features"
)

// FeatureRows converts feature vectors into a row-major matrix.
func FeatureRows(vs []features.FeatureVector) [][]float64 {
	out := make([][]float64, len(vs))
	for i := range vs {
		out[i] = append([]float64(nil), vs[i][:]...)
	}
	return out
}

// TargetRows converts target vectors into a row-major matrix.
func TargetRows(vs []features.TargetVector) [][]float64 {
	out := make([][]float64, len(vs))
	for i := range vs {
		out[i] = append([]float64(nil), vs[i][:]...)
	}
	return out
}

// XRows returns the feature matrix (N×9).
func (t *Training) XRows() [][]float64 { return FeatureRows(t.X) }

// YRows returns the target matrix (N×4).
func (t *Training) YRows() [][]float64 { return TargetRows(t.Y) }

// XRows returns the feature matrix (M×9).
func (t *Test) XRows() [][]float64 { return FeatureRows(t.X) }

// Split divides the rows into a leading part holding fraction of them and
// the remainder. Order is preserved; rows are not shuffled, so the tail is
// the later windows of the last paths.
func (t *Training) Split(fraction float64) (head, tail *Training, err error) {
	if fraction <= 0 || fraction >= 1 {
		return nil, nil, fmt.Errorf("split fraction %v out of range (0, 1)", fraction)
	}

	n := int(fraction * float64(t.Len()))
	head = &Training{X: t.X[:n:n], Y: t.Y[:n:n]}
	tail = &Training{X: t.X[n:], Y: t.Y[n:]}
	if len(t.Keys) == t.Len() {
		head.Keys = t.Keys[:n:n]
		tail.Keys = t.Keys[n:]
	}
	return head, tail, nil
}
