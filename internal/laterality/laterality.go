// Package laterality computes signed hemispheric asymmetry indices and
// assigns subjects to asymmetry categories.
package laterality

import "math"

// Category is a three-way asymmetry classification
type Category string

const (
	// Symmetric covers indices within the band around zero, band edges
	// included
	Symmetric Category = "symmetric"
	// LeftAsymmetric marks higher left-hemisphere burden (negative index)
	LeftAsymmetric Category = "left-asymmetric"
	// RightAsymmetric marks higher right-hemisphere burden (positive index)
	RightAsymmetric Category = "right-asymmetric"
)

// Index returns the signed laterality index for a paired left/right
// measurement: 100·(right − left)/(right + left). A zero denominator makes
// the index undefined and returns NaN.
func Index(left, right float64) float64 {
	sum := right + left
	if sum == 0 {
		return math.NaN()
	}
	return (right - left) / sum * 100
}

// Categorize maps a laterality index to an asymmetry category given the
// half-width of the symmetric band. The boundary is inclusive: an index
// exactly at ±band is symmetric. NaN indices are symmetric by convention
// of the undefined-index case being uninformative; callers that must
// distinguish should test with math.IsNaN first.
func Categorize(index, band float64) Category {
	switch {
	case index > band:
		return RightAsymmetric
	case index < -band:
		return LeftAsymmetric
	default:
		return Symmetric
	}
}

// Pair is one subject's paired left/right measurement with its derived
// index and category
type Pair struct {
	SubjectID string
	Left      float64
	Right     float64
	Index     float64
	Category  Category
}

// CategorizePairs computes indices and categories for a set of paired
// measurements
func CategorizePairs(ids []string, left, right []float64, band float64) []Pair {
	pairs := make([]Pair, len(ids))
	for i := range ids {
		idx := Index(left[i], right[i])
		pairs[i] = Pair{
			SubjectID: ids[i],
			Left:      left[i],
			Right:     right[i],
			Index:     idx,
			Category:  Categorize(idx, band),
		}
	}
	return pairs
}
